package transport

import (
	"runtime"
	"sync"

	"github.com/brickingsoft/rxp"
)

var (
	executors     rxp.Executors = nil
	executorsOnce sync.Once
)

// Startup installs customized executors for dispatched channel operations.
// Call it at program start or not at all; without it a default executor set
// is created on first use.
func Startup(options ...rxp.Option) (err error) {
	exec, newErr := rxp.New(options...)
	if newErr != nil {
		err = newErr
		return
	}
	executors = exec
	return
}

// Shutdown closes the executors, waiting for dispatched operations to
// complete.
func Shutdown() error {
	exec := Executors()
	runtime.SetFinalizer(exec, nil)
	return exec.Close()
}

// Executors returns the package executors, creating the default set on
// first use.
func Executors() rxp.Executors {
	executorsOnce.Do(func() {
		if executors == nil {
			executors, _ = rxp.New()
			runtime.SetFinalizer(executors, rxp.Executors.Close)
		}
	})
	return executors
}
