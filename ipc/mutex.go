package ipc

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/kdiag"
import "github.com/zhanghe-vivo/kernel/limits"
import "github.com/zhanghe-vivo/kernel/sched"

// a recursive mutex with priority inheritance. waiters queue in
// priority order and ownership transfers directly to the front waiter
// on unlock, so the lock is never observably free while threads wait.
// while threads wait, the owner's effective priority is capped by the
// most urgent waiter, propagated along the waits-for chain.
type Mutex_t struct {
	Kobj_t
	k     *sched.Ksched_t
	owner *sched.Tcb_t
	holds int
	// cached priority of the front waiter, PRIO_MAX when none
	wprio int
	wq    sched.Waitq_t
}

func Mkmutex(k *sched.Ksched_t, name string) *Mutex_t {
	m := &Mutex_t{}
	m.Minit(k, name)
	return m
}

func (m *Mutex_t) Minit(k *sched.Ksched_t, name string) {
	m.k = k
	m.wprio = defs.PRIO_MAX
	m.wq.Winit(k, defs.WAIT_PRIO)
	m.objinit(name, KMUTEX, m)
}

func (m *Mutex_t) Waiterprio() int {
	return m.wprio
}

func (m *Mutex_t) Ownertcb() *sched.Tcb_t {
	return m.owner
}

func (m *Mutex_t) Refreshwait() {
	if t := m.wq.Head(); t != nil {
		m.wprio = t.Prio()
	} else {
		m.wprio = defs.PRIO_MAX
	}
}

func (m *Mutex_t) Waiters() int {
	m.k.Lock()
	n := m.wq.Len()
	m.k.Unlock()
	return n
}

// Trylock acquires the mutex iff that cannot block.
func (m *Mutex_t) Trylock() defs.Err_t {
	return m.Lockwait(defs.WAIT_NONE)
}

func (m *Mutex_t) Lock() defs.Err_t {
	return m.Lockwait(defs.WAIT_FOREVER)
}

func (m *Mutex_t) Lockwait(timeout int) defs.Err_t {
	k := m.k
	k.Lock()
	me := k.Current()
	if m.owner == me {
		if m.holds >= limits.Syslimit.Mutexhold {
			k.Unlock()
			return -defs.EFULL
		}
		m.holds++
		k.Unlock()
		return 0
	}
	if m.owner == nil {
		m.takeover(me)
		k.Unlock()
		return 0
	}
	if timeout == defs.WAIT_NONE {
		k.Unlock()
		return -defs.EBUSY
	}
	me = k.Blockcheck()
	if err := m.deadlocked(me); err != 0 {
		k.Unlock()
		return err
	}
	m.wq.Enq(me)
	me.Setpending(m)
	m.Refreshwait()
	if o := m.owner; o != nil {
		if p := o.Mutexprio(); p != o.Prio() {
			k.Setprio_eff(o, p)
		}
	}
	err := k.Parkwait(timeout)
	me.Setpending(nil)
	if err != 0 {
		// timed out or detached; the waker already dequeued us
		m.Refreshwait()
		if o := m.owner; o != nil {
			if p := o.Mutexprio(); p != o.Prio() {
				k.Setprio_eff(o, p)
			}
		}
		k.Unlock()
		return err
	}
	kdiag.Kassert(m.owner == me, "lock handoff")
	k.Unlock()
	return 0
}

// with the kernel locked; uncontended or post-handoff ownership.
func (m *Mutex_t) takeover(t *sched.Tcb_t) {
	m.owner = t
	m.holds = 1
	t.Takenadd(m)
	m.Refreshwait()
	if p := t.Mutexprio(); p != t.Prio() {
		m.k.Setprio_eff(t, p)
	}
}

// with the kernel locked; would blocking on m complete a waits-for
// cycle back to me? the walk is bounded and keeps its visited set on
// the stack; a cycle not involving me just terminates the walk.
func (m *Mutex_t) deadlocked(me *sched.Tcb_t) defs.Err_t {
	var seen [limits.Mutexchain]*sched.Tcb_t
	o := m.owner
	for i := 0; o != nil && i < len(seen); i++ {
		if o == me {
			return -defs.EDEADLK
		}
		for _, s := range seen[:i] {
			if s == o {
				return 0
			}
		}
		seen[i] = o
		p := o.Pending()
		if p == nil {
			break
		}
		o = p.Ownertcb()
	}
	return 0
}

func (m *Mutex_t) Unlock() defs.Err_t {
	k := m.k
	k.Lock()
	me := k.Current()
	if m.owner != me {
		k.Unlock()
		return -defs.ERROR
	}
	m.holds--
	if m.holds > 0 {
		k.Unlock()
		return 0
	}
	m.release(me)
	k.Sched()
	k.Unlock()
	return 0
}

// with the kernel locked; drops ownership, sheds any inherited
// priority, and hands the mutex to the front waiter if there is one.
func (m *Mutex_t) release(me *sched.Tcb_t) {
	k := m.k
	me.Takendel(m)
	if p := me.Mutexprio(); p != me.Prio() {
		k.Setprio_eff(me, p)
	}
	if t := m.wq.Deq(); t != nil {
		t.Setpending(nil)
		m.takeover(t)
		k.Wakeup(t, 0)
	} else {
		m.owner = nil
		m.holds = 0
		m.wprio = defs.PRIO_MAX
	}
}

// Forcedrop releases the mutex at owner exit, with the kernel locked.
func (m *Mutex_t) Forcedrop(t *sched.Tcb_t) {
	kdiag.Kassert(m.owner == t, "force drop by non-owner")
	m.holds = 0
	m.release(t)
}

// Detach wakes all waiters with -ERROR and unregisters the mutex. a
// held mutex stays held; only the waiters are evicted.
func (m *Mutex_t) Detach() defs.Err_t {
	k := m.k
	k.Lock()
	for t := m.wq.Deq(); t != nil; t = m.wq.Deq() {
		t.Setpending(nil)
		k.Wakeup(t, -defs.ERROR)
	}
	m.wprio = defs.PRIO_MAX
	if o := m.owner; o != nil {
		if p := o.Mutexprio(); p != o.Prio() {
			k.Setprio_eff(o, p)
		}
	}
	k.Sched()
	k.Unlock()
	m.objdel()
	return 0
}
