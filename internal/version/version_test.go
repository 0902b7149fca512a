package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "1.2.3"
	assert.Equal(t, "1.2.3", String())
}

func TestInfo(t *testing.T) {
	info := Info()

	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "polecat dataframe engine")
	assert.Contains(t, info.String(), "Go Version:")
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{
		Version:   "1.0.0",
		BuildDate: "2024-01-01T00:00:00Z",
		GitCommit: "abc123def456",
		GitTag:    "1.0.0",
		GoVersion: "go1.24.0",
		BuildTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Deps:      []Module{{Path: "github.com/apache/arrow-go/v18", Version: "v18.3.1"}},
	}

	str := info.String()
	assert.Contains(t, str, "Version: 1.0.0\n")
	assert.Contains(t, str, "Build Date: 2024-01-01T00:00:00Z")
	assert.Contains(t, str, "Git Commit: abc123d\n")
	assert.Contains(t, str, "Go Version: go1.24.0")
	assert.Contains(t, str, "Arrow: v18.3.1")
}

func TestBuildInfoStringFlags(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"dirty", BuildInfo{Version: "1.0.0", GitCommit: "abc-dirty", Dirty: true}, "(dirty)"},
		{"pre-release", BuildInfo{Version: "1.0.0-rc.1"}, "(pre-release)"},
		{"tag differs", BuildInfo{Version: "1.0.0", GitTag: "v1.0.0-rc.1"}, "Version: 1.0.0 (v1.0.0-rc.1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.info.String(), tt.want)
		})
	}
}

func TestIsPreRelease(t *testing.T) {
	assert.True(t, IsPreRelease("0.1.0-dev"))
	assert.True(t, IsPreRelease("1.0.0-beta.2"))
	assert.False(t, IsPreRelease("1.0.0"))
}

func TestDependency(t *testing.T) {
	info := BuildInfo{Deps: []Module{{Path: "a", Version: "v1"}}}
	assert.Equal(t, "v1", info.Dependency("a"))
	assert.Empty(t, info.Dependency("b"))
}
