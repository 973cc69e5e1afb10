package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

const testModeEnv = "SUPERMART_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	testModeFlag.Store(on)
}

// InTestMode reports whether the binaries should skip opening connections.
// Any value strconv.ParseBool accepts as true enables it.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads SUPERMART_TEST_MODE after environment changes.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
