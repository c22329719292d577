package ipc

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/sched"

// a condition variable over a Mutex_t. wait releases the mutex and
// parks in one critical section, so a notify between unlock and park
// cannot be lost. wakeups are mesa style: the caller re-acquires the
// mutex and must recheck its predicate.
type Condvar_t struct {
	Kobj_t
	k  *sched.Ksched_t
	wq sched.Waitq_t
}

func Mkcondvar(k *sched.Ksched_t, name string, mode int) *Condvar_t {
	c := &Condvar_t{}
	c.Cinit(k, name, mode)
	return c
}

func (c *Condvar_t) Cinit(k *sched.Ksched_t, name string, mode int) {
	c.k = k
	c.wq.Winit(k, mode)
	c.objinit(name, KCONDVAR, c)
}

func (c *Condvar_t) Waiters() int {
	c.k.Lock()
	n := c.wq.Len()
	c.k.Unlock()
	return n
}

func (c *Condvar_t) Wait(m *Mutex_t) defs.Err_t {
	return c.Timedwait(m, defs.WAIT_FOREVER)
}

// Timedwait releases m, parks until notified or timed out, then
// re-acquires m before returning. m must be held by the caller; a
// recursive hold is restored at the same depth.
func (c *Condvar_t) Timedwait(m *Mutex_t, timeout int) defs.Err_t {
	k := c.k
	k.Lock()
	me := k.Current()
	if m.owner != me {
		k.Unlock()
		return -defs.ERROR
	}
	me = k.Blockcheck()
	holds := m.holds
	c.wq.Enq(me)
	m.holds = 1
	m.release(me)
	err := k.Parkwait(timeout)
	k.Unlock()
	m.Lock()
	k.Lock()
	m.holds = holds
	k.Unlock()
	return err
}

// Notify wakes the front waiter, if any.
func (c *Condvar_t) Notify() {
	k := c.k
	k.Lock()
	if t := c.wq.Deq(); t != nil {
		k.Wakeup(t, 0)
		k.Sched()
	}
	k.Unlock()
}

// Notify_all wakes every waiter.
func (c *Condvar_t) Notify_all() {
	k := c.k
	k.Lock()
	woke := false
	for t := c.wq.Deq(); t != nil; t = c.wq.Deq() {
		k.Wakeup(t, 0)
		woke = true
	}
	if woke {
		k.Sched()
	}
	k.Unlock()
}

func (c *Condvar_t) Detach() defs.Err_t {
	k := c.k
	k.Lock()
	for t := c.wq.Deq(); t != nil; t = c.wq.Deq() {
		k.Wakeup(t, -defs.ERROR)
	}
	k.Sched()
	k.Unlock()
	c.objdel()
	return 0
}
