package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func setBuild(t *testing.T, version, commit, module string) {
	t.Helper()
	oldV, oldC, oldRead := Version, Commit, readBuildInfo
	t.Cleanup(func() { Version, Commit, readBuildInfo = oldV, oldC, oldRead })
	Version, Commit = version, commit
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: module}}, true
	}
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		name    string
		version string
		module  string
		want    string
	}{
		{"linked", "v1.2.0", "v1.1.0", "v1.2.0"},
		{"go install", "dev", "v1.1.0", "v1.1.0"},
		{"local build", "dev", "(devel)", "dev"},
		{"no module version", "dev", "", "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBuild(t, tt.version, "none", tt.module)
			if got := Current(); got != tt.want {
				t.Errorf("Current() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	setBuild(t, "v0.3.0", "1a2b3c4d5e6f", "")
	want := "neuralviz v0.3.0 (commit 1a2b3c4, built " + Date + ")"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTemplate(t *testing.T) {
	setBuild(t, "v0.3.0", "abc", "")
	got := Template()
	if !strings.HasPrefix(got, "{{.Name}} version v0.3.0\n") || !strings.Contains(got, "commit: abc\n") {
		t.Errorf("Template() = %q", got)
	}
}
