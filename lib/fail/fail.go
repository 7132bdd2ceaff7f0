/*package fail contains simple functions for reporting gadget_reader errors
and exiting.
*/
package fail

import (
	"os"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// exit is replaced in tests.
var exit = os.Exit

// External reports an error and kills the program. It should be used when an
// error is something a user could reasonably be expected to fix through
// changes in configuration/data/environment. It has the same signature as the
// standard fmt.*printf() functions.
func External(log logrus.FieldLogger, format string, a ...interface{}) {
	log.Errorf("gadget_reader exited early with the following error:\n" +
		format, a...)
	exit(1)
}

// Internal reports an error along with a stack trace and kills the program.
// It should be used when the error requires a code dive to fix.
func Internal(log logrus.FieldLogger, format string, a ...interface{}) {
	log.WithField("stack", string(debug.Stack())).
		Errorf("gadget_reader exited early with the following error:\n" +
		format, a...)
	exit(1)
}
