// Package buildinfo reports which neuralviz build is running.
//
// Release builds link the values in:
//
//	go build -ldflags "-X github.com/matzehuels/neuralviz/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/neuralviz/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/neuralviz/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries built with "go install ...@v1.0.0" carry no ldflags; [Current]
// then falls back to the module version recorded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Set through ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Current returns the linked version, the module version of a
// "go install" build, or "dev".
func Current() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := readBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}

// String returns a one-line summary for logs, such as
// "neuralviz v1.0.0 (commit 1a2b3c4, built 2026-01-02T03:04:05Z)".
func String() string {
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("neuralviz %s (commit %s, built %s)", Current(), commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Current(), Commit, Date)
}
