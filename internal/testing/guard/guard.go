package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("WEAVETRACK_TEST_MODE") == "" {
			_ = os.Setenv("WEAVETRACK_TEST_MODE", "1")
		}
	})
}
