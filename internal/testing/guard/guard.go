// Package guard forces test mode for packages that blank-import it.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("VENDORPULSE_TEST_MODE") == "" {
			_ = os.Setenv("VENDORPULSE_TEST_MODE", "1")
		}
	})
}
