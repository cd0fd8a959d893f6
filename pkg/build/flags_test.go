// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = *buildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildInfo = origInfo

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", "BuildName is required"},
		{"Missing BuildTime", "rtaudio", "", "abcdef123", "v1.0.0", "BuildTime is required"},
		{"Missing BuildCommit", "rtaudio", "2025-04-13", "", "v1.0.0", "BuildCommit is required"},
		{"Missing BuildVersion", "rtaudio", "2025-04-13", "abcdef123", "", "BuildVersion is required"},
		{"Missing Everything", "", "", "", "", "BuildName is required\nBuildTime is required\nBuildCommit is required\nBuildVersion is required"},
		{"Success Case", "rtaudio", "2025-04-13", "abcdef123", "v1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*buildInfo = origInfo

			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil {
					t.Fatalf("Initialize() expected error, got nil")
				}
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %q, want %q", err, tt.wantErrMsg)
				}
				if Get() != origInfo {
					t.Errorf("failed Initialize() changed info to %+v", Get())
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			want := Info{Name: tt.buildName, Time: tt.buildTime, Commit: tt.buildCommit, Version: tt.buildVer}
			if got := Get(); got != want {
				t.Errorf("Get() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDevelopmentDefaults(t *testing.T) {
	if origInfo.Name != "rtaudio" || origInfo.Version != "dev" {
		t.Errorf("defaults = %+v", origInfo)
	}
}

func TestInfoString(t *testing.T) {
	s := Info{Name: "rtaudio", Time: "2025-04-13", Commit: "abcdef1", Version: "v1.0.0"}.String()
	for _, want := range []string{"rtaudio v1.0.0", "abcdef1", "2025-04-13"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
