package defs

// Tid_t is a stable thread handle; tids index the thread arena and are
// not reused while the thread is live.
type Tid_t int

// NOTID marks an empty wait-queue link.
const NOTID Tid_t = -1

// thread priorities. lower value = higher urgency. PRIO_IDLE is
// reserved for the idle thread.
const (
	PRIO_MAX  = 32
	PRIO_IDLE = PRIO_MAX - 1
)

// wait-queue ordering, selected per object at creation time.
const (
	WAIT_FIFO = 0
	WAIT_PRIO = 1
)

// timeout sentinels for blocking operations, in ticks.
const (
	WAIT_FOREVER = -1
	WAIT_NONE    = 0
)

// event receive options; AND and OR are mutually exclusive.
const (
	EVENT_AND   = 1 << 0
	EVENT_OR    = 1 << 1
	EVENT_CLEAR = 1 << 2
)

type Tstate_t int

const (
	TINIT Tstate_t = iota
	TREADY
	TRUNNING
	TSUSPENDED
	TBLOCKED
	TCLOSED
)

func (ts Tstate_t) String() string {
	switch ts {
	case TINIT:
		return "init"
	case TREADY:
		return "ready"
	case TRUNNING:
		return "running"
	case TSUSPENDED:
		return "suspended"
	case TBLOCKED:
		return "blocked"
	case TCLOSED:
		return "closed"
	}
	return "bad state"
}
