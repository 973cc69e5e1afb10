// Package testing switches the binaries into test mode when imported by a test.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func enable() {
	once.Do(func() {
		_ = os.Setenv("SUPERMART_TEST_MODE", "1")
		if os.Getenv("LOG_LEVEL") == "" {
			_ = os.Setenv("LOG_LEVEL", "error")
		}
	})
}

func init() {
	enable()
}

// TestMain lets a package opt in explicitly from its own TestMain.
func TestMain(m *stdtesting.M) {
	enable()
	os.Exit(m.Run())
}
