// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package projectfile loads and saves project trees as YAML documents.
//
// A document has a version, the project name and the children of the root group:
//
//	version: "1.0"
//	name: My project
//	children:
//	  - type: group
//	    name: build
//	    children:
//	      - type: script
//	        path: /home/me/compile.sh
//	        args: ["-v"]
//	        env:
//	          - name: FOO
//	            value: bar
//	        repeat: 3
//	        delay: 1.5s
//
// Loading is all or nothing: a document with any violation yields a *ParseError listing
// every problem found, and no tree.
package projectfile
