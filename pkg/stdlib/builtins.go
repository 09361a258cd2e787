package stdlib

import (
	"time"

	"github.com/thomasrohde/golox/pkg/interpreter"
)

// now is swapped out by tests.
var now = time.Now

// RegisterDefaults adds all native functions.
func RegisterDefaults(r *Registry) {
	r.Register(interpreter.Native{Name: "clock", Params: 0, Fn: nativeClock})
}

// Default returns a registry holding every native function.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// clock() → seconds since the Unix epoch, with sub-second precision
func nativeClock(_ []interpreter.Value) (interpreter.Value, error) {
	return interpreter.Number{Value: float64(now().UnixNano()) / float64(time.Second)}, nil
}
