package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setBuild(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	})
	Version, Commit, Date = v, commit, date
}

func TestInfoDefault(t *testing.T) {
	info := Info()
	assert.Contains(t, info, "thecafe")
	assert.Contains(t, info, Version)
	assert.Contains(t, info, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestInfoWithCustomValues(t *testing.T) {
	setBuild(t, "1.2.3", "abc1234567890", "2026-01-15")

	info := Info()
	assert.Contains(t, info, "1.2.3")
	assert.Contains(t, info, "abc1234")
	assert.NotContains(t, info, "abc1234567890")
	assert.Contains(t, info, "2026-01-15")
}

func TestGet_LdflagsWin(t *testing.T) {
	setBuild(t, "2.0.0", "deadbeef", "2026-10-01")

	b := Get()
	assert.Equal(t, BuildInfo{
		Version:   "2.0.0",
		Commit:    "deadbeef",
		Date:      "2026-10-01",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}, b)
}

func TestShort(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"abcdefghij", "abcdefg"},
		{"abc1234", "abc1234"},
		{"", ""},
		{"12345678", "1234567"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, short(tt.input))
		})
	}
}
