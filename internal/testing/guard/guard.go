// Package guard forces test mode on for any package that imports it, so
// binaries under test never try to reach real infrastructure.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("RETAILPOINT_TEST_MODE") == "" {
			_ = os.Setenv("RETAILPOINT_TEST_MODE", "1")
		}
	})
}
