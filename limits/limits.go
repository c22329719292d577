package limits

// Mutexchain bounds the priority-inheritance/deadlock waits-for walk;
// it mirrors the max number of concurrently held mutexes. a compile
// time constant so walkers can keep their visited set on the stack.
const Mutexchain = 8

type Syslimit_t struct {
	// max live threads, including idle
	Systhreads int
	// max mutex recursion depth per owner
	Mutexhold int
	// semaphore count ceiling
	Semmax int
	// default mailbox capacity (mails)
	Mboxcap int
	// default message queue capacity (messages)
	Msgqcap int
	// max message size in bytes
	Msgmax int
}

var Syslimit *Syslimit_t = MkSysLimit()

func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Systhreads: 1024,
		Mutexhold:  255,
		Semmax:     1 << 16,
		Mboxcap:    16,
		Msgqcap:    16,
		Msgmax:     256,
	}
}
