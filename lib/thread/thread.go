/*package thread contains functions useful for multi-threading.*/
package thread

import (
	"runtime"

	"github.com/pkg/errors"
)

// Set sets the number of threads that Go runs on and returns it. n = -1 uses
// every core.
func Set(n int) (int, error) {
	if n == -1 { n = runtime.NumCPU() }

	if n > runtime.NumCPU() {
		return 0, errors.Errorf("%d threads requested, but your system only " +
			"has %d cores. If you want gadget_reader to use every core, set " +
			"Threads = -1.", n, runtime.NumCPU())
	} else if n < 1 {
		return 0, errors.Errorf("%d threads requested, but at least one " +
			"thread is needed.", n)
	}

	runtime.GOMAXPROCS(n)
	return n, nil
}
