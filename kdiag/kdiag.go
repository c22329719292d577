package kdiag

import "fmt"
import "os"
import "sync"

// the diagnostic sink. Kprintf formats into an installable output
// function so a console driver (or a test) can capture kernel output.

var outmu sync.Mutex
var outf func(string) = func(s string) {
	os.Stdout.WriteString(s)
}

func Setoutput(f func(string)) {
	outmu.Lock()
	outf = f
	outmu.Unlock()
}

func Kprintf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	outmu.Lock()
	f := outf
	outmu.Unlock()
	f(s)
}

// assertion hook, invoked before the kernel aborts on an invariant
// violation. a hook may panic itself to terminate only the offending
// unit instead of halting.
var ahook func(string)

func Sethook(f func(string)) {
	ahook = f
}

// Kassert aborts the kernel with a diagnostic unless cond holds.
// invariant violations are kernel bugs, not recoverable conditions.
func Kassert(cond bool, msg string) {
	if cond {
		return
	}
	if ahook != nil {
		ahook(msg)
	}
	panic("kernel: " + msg)
}
