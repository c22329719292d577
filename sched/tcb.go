package sched

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/kdiag"
import "github.com/zhanghe-vivo/kernel/limits"

// Lock_i is implemented by priority-inheriting locks. the scheduler
// uses it for effective-priority bookkeeping and exit cleanup without
// knowing lock internals; all methods run with the kernel locked.
type Lock_i interface {
	// priority of the most urgent waiter, or PRIO_MAX when none
	Waiterprio() int
	Ownertcb() *Tcb_t
	// recompute the cached top-waiter priority after a reorder
	Refreshwait()
	// release at owner exit
	Forcedrop(t *Tcb_t)
}

// Tcb_t is a thread control block. a tcb lives in the kernel's thread
// arena and is addressed by its stable tid. fields are only mutated
// with the kernel locked; the Ev*/Mail*/Msg* fields are scratch space
// for ipc rendezvous with this thread.
type Tcb_t struct {
	Tid  defs.Tid_t
	Name string

	state    defs.Tstate_t
	suspwhy  string
	baseprio int
	prio     int
	slice    int

	// queue membership. a tcb sits on at most one queue at a time,
	// either a ready list or a wait queue.
	onq   *Waitq_t
	wnext defs.Tid_t
	wprev defs.Tid_t

	// cpu grant token; receiving it makes this thread the running one
	runch  chan struct{}
	exitch chan struct{}
	entry  func()
	werr   defs.Err_t
	tmr    *Ktimer_t

	// priority inheritance bookkeeping
	pending Lock_i
	taken   []Lock_i

	// event receive rendezvous
	Evwant uint32
	Evopt  int
	Evgot  uint32

	// mailbox/message queue receive rendezvous
	Mailval uintptr
	Msgbuf  []uint8
	Msglen  int

	k *Ksched_t
}

func (t *Tcb_t) State() defs.Tstate_t {
	return t.state
}

func (t *Tcb_t) Prio() int {
	return t.prio
}

func (t *Tcb_t) Baseprio() int {
	return t.baseprio
}

func (t *Tcb_t) Pending() Lock_i {
	return t.pending
}

func (t *Tcb_t) Setpending(l Lock_i) {
	t.pending = l
}

func (t *Tcb_t) Takenadd(l Lock_i) {
	t.taken = append(t.taken, l)
}

func (t *Tcb_t) Takendel(l Lock_i) {
	for i, v := range t.taken {
		if v == l {
			t.taken = append(t.taken[:i], t.taken[i+1:]...)
			return
		}
	}
	kdiag.Kassert(false, "drop of mutex not taken")
}

// Mutexprio computes the thread's effective priority: the base
// priority capped by the most urgent waiter on any lock it holds.
func (t *Tcb_t) Mutexprio() int {
	prio := t.baseprio
	for _, l := range t.taken {
		if w := l.Waiterprio(); w < prio {
			prio = w
		}
	}
	return prio
}

// Join blocks the caller until the thread exits. host-side only; a
// kernel thread joining another would wedge the cpu.
func (t *Tcb_t) Join() {
	<-t.exitch
}

func (t *Tcb_t) run(k *Ksched_t) {
	<-t.runch
	t.entry()
	k.thread_exit(t)
}

// Thread_init allocates a tcb in the init state. the thread does not
// run until Thread_startup.
func (k *Ksched_t) Thread_init(name string, prio int, entry func()) (*Tcb_t, defs.Err_t) {
	if prio < 0 || prio >= defs.PRIO_IDLE {
		return nil, -defs.EINVAL
	}
	k.Lock()
	defer k.Unlock()
	if k.nthreads >= limits.Syslimit.Systhreads {
		return nil, -defs.ENOMEM
	}
	t := k.mktcb(name, prio)
	t.entry = entry
	return t, 0
}

// with the kernel locked
func (k *Ksched_t) mktcb(name string, prio int) *Tcb_t {
	t := &Tcb_t{
		Name:     name,
		state:    defs.TINIT,
		baseprio: prio,
		prio:     prio,
		wnext:    defs.NOTID,
		wprev:    defs.NOTID,
		runch:    make(chan struct{}, 1),
		exitch:   make(chan struct{}),
		k:        k,
	}
	t.Tid = k.tidalloc(t)
	k.nthreads++
	return t
}

func (k *Ksched_t) tidalloc(t *Tcb_t) defs.Tid_t {
	if n := len(k.freetids); n > 0 {
		tid := k.freetids[n-1]
		k.freetids = k.freetids[:n-1]
		k.tcbs[tid] = t
		return tid
	}
	k.tcbs = append(k.tcbs, t)
	return defs.Tid_t(len(k.tcbs) - 1)
}

// Thread_startup makes an init thread runnable and reschedules if it
// outranks the caller.
func (k *Ksched_t) Thread_startup(t *Tcb_t) defs.Err_t {
	k.Lock()
	defer k.Unlock()
	if t.state != defs.TINIT {
		return -defs.ERROR
	}
	go t.run(k)
	k.readyup(t)
	k.Sched()
	return 0
}

// Lookup resolves a tid to its tcb, with the kernel locked. returns
// nil for closed or never-allocated tids.
func (k *Ksched_t) Lookup(tid defs.Tid_t) *Tcb_t {
	if tid < 0 || int(tid) >= len(k.tcbs) {
		return nil
	}
	return k.tcbs[tid]
}

// Thread_self returns the tid of the calling thread.
func (k *Ksched_t) Thread_self() defs.Tid_t {
	k.Lock()
	tid := k.cur
	k.Unlock()
	return tid
}

// Thread_setprio changes a thread's base priority. the effective
// priority keeps any inherited cap.
func (k *Ksched_t) Thread_setprio(t *Tcb_t, prio int) defs.Err_t {
	if prio < 0 || prio >= defs.PRIO_IDLE {
		return -defs.EINVAL
	}
	k.Lock()
	defer k.Unlock()
	if t.state == defs.TCLOSED {
		return -defs.ERROR
	}
	t.baseprio = prio
	k.Setprio_eff(t, t.Mutexprio())
	k.Sched()
	return 0
}

// Suspend takes a thread out of scheduling until Resume. a running
// thread suspending itself parks immediately; suspension from
// interrupt context takes effect at the next scheduling point.
func (k *Ksched_t) Suspend(t *Tcb_t, why string) defs.Err_t {
	k.Lock()
	defer k.Unlock()
	switch t.state {
	case defs.TREADY:
		k.rdyremove(t)
	case defs.TRUNNING:
	default:
		return -defs.ERROR
	}
	t.state = defs.TSUSPENDED
	t.suspwhy = why
	if t == k.Current() {
		if k.irqlevel == 0 && k.schedlock == 0 {
			k.reschedule(t)
		} else {
			k.resched = true
		}
	}
	return 0
}

func (k *Ksched_t) Resume(t *Tcb_t) defs.Err_t {
	k.Lock()
	defer k.Unlock()
	if t.state != defs.TSUSPENDED {
		return -defs.ERROR
	}
	t.suspwhy = ""
	k.readyup(t)
	k.Sched()
	return 0
}

// Thread_delay blocks the caller for the given number of ticks.
func (k *Ksched_t) Thread_delay(ticks int) defs.Err_t {
	if ticks <= 0 {
		k.Yield()
		return 0
	}
	k.Lock()
	me := k.Blockcheck()
	err := k.parkwait(me, ticks)
	k.Unlock()
	if err == -defs.ETIMEOUT {
		err = 0
	}
	return err
}

// with the kernel locked; the exiting thread hands the cpu off and
// its goroutine returns without parking.
func (k *Ksched_t) thread_exit(t *Tcb_t) {
	k.Lock()
	kdiag.Kassert(t.Tid != k.idle, "idle thread exit")
	kdiag.Kassert(t.pending == nil, "exit while blocked on a lock")
	for len(t.taken) > 0 {
		t.taken[len(t.taken)-1].Forcedrop(t)
	}
	t.state = defs.TCLOSED
	k.tcbs[t.Tid] = nil
	k.freetids = append(k.freetids, t.Tid)
	k.nthreads--
	next := k.pick()
	k.grant(next)
	k.Unlock()
	close(t.exitch)
}

// Thread_foreach walks all live tcbs with the kernel locked.
func (k *Ksched_t) Thread_foreach(f func(*Tcb_t)) {
	k.Lock()
	for _, t := range k.tcbs {
		if t != nil {
			f(t)
		}
	}
	k.Unlock()
}

// Threadlist prints one line per live thread to the diagnostic sink.
func (k *Ksched_t) Threadlist() {
	kdiag.Kprintf("%-4s %-16s %-10s %4s %4s\n", "tid", "name", "state", "prio", "base")
	k.Thread_foreach(func(t *Tcb_t) {
		kdiag.Kprintf("%-4d %-16s %-10s %4d %4d\n", int(t.Tid), t.Name,
			t.state.String(), t.prio, t.baseprio)
	})
}
