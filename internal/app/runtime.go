package app

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const testModeEnv = "WEAVETRACK_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// detectTestMode accepts "1" or "true" in WEAVETRACK_TEST_MODE.
func detectTestMode() {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(testModeEnv)))
	testModeFlag.Store(v == "1" || v == "true")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}
