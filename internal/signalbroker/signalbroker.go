// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker turns OS termination signals into a two step shutdown.
// The first signal asks running scripts to stop gracefully, the second cancels the
// command's context so everything is torn down.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/unruhe73/qrunner/internal/ctxlog"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// New creates a channel that receives OS signals that should terminate the process.
// With no signals given it listens for SIGINT, SIGTERM and SIGQUIT.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "signalbroker", "detail", "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop stops delivering signals to a channel created with New.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}

// Watch handles signals from sigCh until ctx is done or the channel is closed.
// The first signal calls onFirst, any later signal calls cancel and ends the watch.
func Watch(ctx context.Context, sigCh <-chan os.Signal, onFirst func(os.Signal), cancel context.CancelFunc) {
	first := true

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if !first {
				ctxlog.Info(ctx, "watchdog", "detail", "received second signal, cancelling", "signal", sig.String())
				cancel()

				return
			}

			first = false

			ctxlog.Info(ctx, "watchdog", "detail", "received signal, stopping scripts", "signal", sig.String())

			if onFirst != nil {
				onFirst(sig)
			}
		}
	}
}
