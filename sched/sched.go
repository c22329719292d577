package sched

import "math/bits"
import "sync"

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/kdiag"
import "github.com/zhanghe-vivo/kernel/limits"
import "github.com/zhanghe-vivo/kernel/stats"

// Ksched_t models one cpu. each kernel thread is a goroutine parked
// on its grant channel; exactly one thread goroutine runs at a time
// and hands the cpu to its successor directly. the embedded mutex is
// the kernel lock: holding it is the interrupts-disabled critical
// section, and it is never held across a park.
//
// host code (tests, a tick source, device emulation) is not a kernel
// thread. it may wake threads and drive Tick, but calls that can
// reschedule must be wrapped in Irq_enter/Irq_exit so the switch is
// deferred to the running thread's next scheduling point.
type Ksched_t struct {
	sync.Mutex

	tcbs     []*Tcb_t
	freetids []defs.Tid_t
	nthreads int

	rdy    [defs.PRIO_MAX]Waitq_t
	rdygrp uint32

	cur      defs.Tid_t
	idle     defs.Tid_t
	idlehook func()
	idlekick chan struct{}

	schedlock int
	resched   bool
	irqlevel  int

	now    int64
	timers *Ktimer_t
	slice  int

	St Kstats_t
}

type Kstats_t struct {
	Nswitch  stats.Counter_t
	Ntick    stats.Counter_t
	Ntimeout stats.Counter_t
	Nidle    stats.Counter_t
}

// DEFSLICE is the default round-robin quantum in ticks.
const DEFSLICE = 10

func MkSched(slice int) *Ksched_t {
	if slice <= 0 {
		slice = DEFSLICE
	}
	k := &Ksched_t{slice: slice, idlekick: make(chan struct{}, 1)}
	for i := range k.rdy {
		k.rdy[i].Winit(k, defs.WAIT_FIFO)
	}
	k.Lock()
	it := k.mktcb("idle", defs.PRIO_IDLE)
	it.state = defs.TRUNNING
	k.cur = it.Tid
	k.idle = it.Tid
	k.Unlock()
	go k.idlebody(it)
	return k
}

// Set_idlehook installs a function the idle thread runs while no
// other thread is runnable.
func (k *Ksched_t) Set_idlehook(f func()) {
	k.Lock()
	k.idlehook = f
	k.Unlock()
}

func (k *Ksched_t) idlebody(me *Tcb_t) {
	for {
		k.Lock()
		hook := k.idlehook
		work := k.rdygrp != 0
		if work {
			me.state = defs.TREADY
			k.rdyenq(me)
			k.reschedule(me)
		}
		k.Unlock()
		if !work {
			if hook != nil {
				hook()
			}
			k.St.Nidle.Inc()
			<-k.idlekick
		}
	}
}

// Current returns the running thread's tcb, with the kernel locked.
func (k *Ksched_t) Current() *Tcb_t {
	return k.tcbs[k.cur]
}

func (k *Ksched_t) rdyenq(t *Tcb_t) {
	k.rdy[t.prio].Enq(t)
	k.rdygrp |= 1 << uint(t.prio)
}

func (k *Ksched_t) rdyremove(t *Tcb_t) {
	q := &k.rdy[t.prio]
	q.Remove(t)
	if q.Empty() {
		k.rdygrp &^= 1 << uint(t.prio)
	}
}

func (k *Ksched_t) rdybest() (int, bool) {
	if k.rdygrp == 0 {
		return 0, false
	}
	return bits.TrailingZeros32(k.rdygrp), true
}

func (k *Ksched_t) pick() *Tcb_t {
	kdiag.Kassert(k.rdygrp != 0, "no runnable thread")
	p := bits.TrailingZeros32(k.rdygrp)
	q := &k.rdy[p]
	t := q.Deq()
	if q.Empty() {
		k.rdygrp &^= 1 << uint(p)
	}
	return t
}

// with the kernel locked; makes t the running thread.
func (k *Ksched_t) grant(t *Tcb_t) {
	k.cur = t.Tid
	t.state = defs.TRUNNING
	t.slice = k.slice
	k.St.Nswitch.Inc()
	t.runch <- struct{}{}
}

// with the kernel locked; hands the cpu to the best ready thread and
// parks me until regranted. me's state and queue membership must
// already reflect why it stops running.
func (k *Ksched_t) reschedule(me *Tcb_t) {
	next := k.pick()
	if next == me {
		me.state = defs.TRUNNING
		k.cur = me.Tid
		me.slice = k.slice
		return
	}
	k.grant(next)
	k.Unlock()
	<-me.runch
	k.Lock()
}

// with the kernel locked; makes a blocked or init thread ready and
// flags a reschedule when it outranks the running one.
func (k *Ksched_t) readyup(t *Tcb_t) {
	t.state = defs.TREADY
	k.rdyenq(t)
	if k.cur == k.idle {
		select {
		case k.idlekick <- struct{}{}:
		default:
		}
	} else if t.prio < k.Current().prio {
		k.resched = true
	}
}

// Wakeup readies a blocked thread with the given wait status. the
// caller must have dequeued it already. kernel locked.
func (k *Ksched_t) Wakeup(t *Tcb_t, err defs.Err_t) {
	kdiag.Kassert(t.state == defs.TBLOCKED, "wakeup of unblocked thread")
	kdiag.Kassert(t.onq == nil, "wakeup of queued thread")
	t.werr = err
	k.readyup(t)
}

// Sched re-evaluates the ready set at a scheduling point of the
// running thread. with the scheduler locked or from interrupt context
// the switch is deferred. kernel locked.
func (k *Ksched_t) Sched() {
	if k.schedlock > 0 || k.irqlevel > 0 {
		k.resched = true
		return
	}
	if k.cur == k.idle {
		select {
		case k.idlekick <- struct{}{}:
		default:
		}
		return
	}
	me := k.Current()
	if me.state == defs.TSUSPENDED {
		k.reschedule(me)
		return
	}
	best, any := k.rdybest()
	if !any {
		k.resched = false
		return
	}
	doit := best < me.prio || (k.resched && best <= me.prio) ||
		(me.slice <= 0 && best == me.prio)
	k.resched = false
	if doit {
		me.state = defs.TREADY
		k.rdyenq(me)
		k.reschedule(me)
	}
}

// Preempt_point is an explicit kernel entry for cpu-bound threads: a
// reschedule deferred by an interrupt (a drained quantum, a wakeup of
// a more urgent thread) is applied here.
func (k *Ksched_t) Preempt_point() {
	k.Lock()
	k.Sched()
	k.Unlock()
}

// Yield moves the caller to the back of its priority's ready list.
func (k *Ksched_t) Yield() {
	k.Lock()
	me := k.Blockcheck()
	me.state = defs.TREADY
	k.rdyenq(me)
	k.reschedule(me)
	k.Unlock()
}

// Sched_lock pins the caller to the cpu; wakeups still happen but no
// switch occurs until the matching Sched_unlock. nests.
func (k *Ksched_t) Sched_lock() {
	k.Lock()
	k.schedlock++
	k.Unlock()
}

func (k *Ksched_t) Sched_unlock() {
	k.Lock()
	kdiag.Kassert(k.schedlock > 0, "unbalanced scheduler unlock")
	k.schedlock--
	if k.schedlock == 0 && k.resched {
		k.Sched()
	}
	k.Unlock()
}

// Irq_enter/Irq_exit bracket interrupt-context work, including any
// host-side call that may wake a thread. nests.
func (k *Ksched_t) Irq_enter() {
	k.Lock()
	k.irqlevel++
	k.Unlock()
}

func (k *Ksched_t) Irq_exit() {
	k.Lock()
	kdiag.Kassert(k.irqlevel > 0, "unbalanced irq exit")
	k.irqlevel--
	if k.irqlevel == 0 && k.cur == k.idle && k.rdygrp != 0 {
		select {
		case k.idlekick <- struct{}{}:
		default:
		}
	}
	k.Unlock()
}

// Blockcheck asserts that blocking is legal here: thread context,
// scheduler unlocked, not in an interrupt. the kernel lock is dropped
// before the abort so a diagnostic hook that panics leaves the kernel
// usable. kernel locked.
func (k *Ksched_t) Blockcheck() *Tcb_t {
	if k.irqlevel > 0 {
		k.Unlock()
		kdiag.Kassert(false, "blocking call from interrupt context")
	}
	if k.schedlock > 0 {
		k.Unlock()
		kdiag.Kassert(false, "blocking call with scheduler locked")
	}
	me := k.Current()
	if me.Tid == k.idle {
		k.Unlock()
		kdiag.Kassert(false, "blocking call from non-thread context")
	}
	return me
}

// Sleep enqueues the caller on q and parks it. returns the wait
// status set by the waker, or -ETIMEOUT. kernel locked.
func (k *Ksched_t) Sleep(q *Waitq_t, timeout int) defs.Err_t {
	me := k.Blockcheck()
	q.Enq(me)
	return k.parkwait(me, timeout)
}

// Parkwait parks a caller that is already enqueued (or, for a pure
// delay, on no queue at all). kernel locked.
func (k *Ksched_t) Parkwait(timeout int) defs.Err_t {
	me := k.Blockcheck()
	return k.parkwait(me, timeout)
}

func (k *Ksched_t) parkwait(me *Tcb_t, timeout int) defs.Err_t {
	me.werr = 0
	if timeout > 0 {
		me.tmr = k.timeradd(k.now+int64(timeout), func() {
			k.waketimeout(me)
		})
	}
	me.state = defs.TBLOCKED
	k.reschedule(me)
	if me.tmr != nil {
		k.timerdel(me.tmr)
		me.tmr = nil
	}
	return me.werr
}

// timer callback; fires with the kernel locked in interrupt context.
// racing wakers run under the same lock, so a thread is woken exactly
// once.
func (k *Ksched_t) waketimeout(t *Tcb_t) {
	if t.state != defs.TBLOCKED {
		return
	}
	if t.onq != nil {
		t.onq.Remove(t)
	}
	t.werr = -defs.ETIMEOUT
	k.St.Ntimeout.Inc()
	k.readyup(t)
}

// Setprio_eff sets a thread's effective priority, reslotting it in
// whatever queue it occupies, then repairs inheritance along the
// thread's waits-for chain: each lock it blocks on refreshes its
// cached top-waiter priority and the owner is re-evaluated, so an
// owner tracks waiter priority changes in both directions. kernel
// locked.
func (k *Ksched_t) Setprio_eff(t *Tcb_t, prio int) {
	if prio == t.prio {
		return
	}
	k.reprio(t, prio)
	for i := 0; i < limits.Mutexchain; i++ {
		p := t.pending
		if p == nil {
			return
		}
		p.Refreshwait()
		o := p.Ownertcb()
		if o == nil {
			return
		}
		np := o.Mutexprio()
		if np == o.prio {
			return
		}
		k.reprio(o, np)
		t = o
	}
}

// with the kernel locked; reslot one thread at its new priority.
func (k *Ksched_t) reprio(t *Tcb_t, prio int) {
	if prio == t.prio {
		return
	}
	switch t.state {
	case defs.TREADY:
		k.rdyremove(t)
		t.prio = prio
		k.rdyenq(t)
		if k.cur != k.idle && prio < k.Current().prio {
			k.resched = true
		}
	case defs.TBLOCKED:
		q := t.onq
		t.prio = prio
		if q != nil {
			q.requeue(t)
		}
	default:
		t.prio = prio
	}
}

func (k *Ksched_t) Statstr() string {
	return stats.Stats2String(&k.St)
}
