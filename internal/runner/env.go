// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runner

import (
	"maps"
	"slices"
	"strings"
)

// mergeEnv returns base with overlay applied on top. Overlay entries win on collision and
// are appended in name order.
func mergeEnv(base []string, overlay map[string]string) []string {
	env := make([]string, 0, len(base)+len(overlay))

	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := overlay[name]; ok {
			continue
		}

		env = append(env, kv)
	}

	for _, k := range slices.Sorted(maps.Keys(overlay)) {
		env = append(env, k+"="+overlay[k])
	}

	return env
}
