// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags at build time.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// LibraryName identifies this client in every payload
// (_library_name) and in the upload envelope's api.library.name.
const LibraryName = "eventq-go"

// Platform is the default _platform value.
const Platform = "Go"

// Library is the api.library object of an upload envelope.
type Library struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Current returns the Library describing this build.
func Current() Library {
	return Library{Name: LibraryName, Version: Version}
}

// Info returns a formatted version string for --version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s %s (%s%s, %s)", LibraryName, Version, GitCommit, dirty, BuildTime)
}

// Full adds the Go version and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Print writes the --version output of binary to stdout.
func Print(binary string) {
	fmt.Printf("%s: %s\n", binary, Full())
}
