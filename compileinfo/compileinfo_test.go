package compileinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.18",
		Path:      "github.com/carbocation/rnadiff/cmd/rnadiff",
		Main:      debug.Module{Version: "v0.1.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2022-06-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	ci := fromBuildInfo(bi)
	if ci.Commit != "abc123" || !ci.Modified || ci.Version != "v0.1.0" {
		t.Fatalf("Unexpected compile info: %+v", ci)
	}

	s := ci.String()
	for _, want := range []string{"rnadiff/cmd/rnadiff v0.1.0", "go1.18", "abc123", "modified"} {
		if !strings.Contains(s, want) {
			t.Errorf("%q does not contain %q", s, want)
		}
	}
}

func TestEmptyString(t *testing.T) {
	if s := (CompileInfo{}).String(); !strings.Contains(s, "no build information") {
		t.Errorf("Unexpected: %s", s)
	}
}
