package testutil

import (
	"os"
	"runtime"
	"testing"
)

// Platform describes where the tests run.
type Platform struct {
	IsWindows bool
	IsRoot    bool
	UID       int
}

// DetectPlatform inspects the running process.
func DetectPlatform(t *testing.T) Platform {
	t.Helper()
	uid := os.Geteuid()
	return Platform{
		IsWindows: runtime.GOOS == "windows",
		IsRoot:    uid == 0,
		UID:       uid,
	}
}

// SkipIfWindows skips the test on Windows, where shell scripts and
// Unix-only tools are unavailable.
func SkipIfWindows(t *testing.T, p Platform, reason string) {
	t.Helper()
	if p.IsWindows {
		t.Skipf("skipping on windows: %s", reason)
	}
}

