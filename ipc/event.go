package ipc

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/sched"

// an event flag group. receivers wait for a mask under AND or OR
// semantics; EVENT_CLEAR consumes the satisfying bits on delivery.
type Event_t struct {
	Kobj_t
	k   *sched.Ksched_t
	set uint32
	wq  sched.Waitq_t
}

func Mkevent(k *sched.Ksched_t, name string, mode int) *Event_t {
	e := &Event_t{}
	e.Evinit(k, name, mode)
	return e
}

func (e *Event_t) Evinit(k *sched.Ksched_t, name string, mode int) {
	e.k = k
	e.wq.Winit(k, mode)
	e.objinit(name, KEVENT, e)
}

func (e *Event_t) Waiters() int {
	e.k.Lock()
	n := e.wq.Len()
	e.k.Unlock()
	return n
}

// with the kernel locked; does the current set satisfy a waiter's
// mask, and which bits delivered?
func (e *Event_t) sat(want uint32, opt int) (uint32, bool) {
	if opt&defs.EVENT_AND != 0 {
		if e.set&want == want {
			return want, true
		}
	} else if e.set&want != 0 {
		return e.set & want, true
	}
	return 0, false
}

// Send sets bits in the group and delivers to every waiter whose mask
// is now satisfied. safe from interrupt context.
func (e *Event_t) Send(set uint32) defs.Err_t {
	if set == 0 {
		return -defs.EINVAL
	}
	k := e.k
	k.Lock()
	e.set |= set
	var clear uint32
	woke := false
	e.wq.Each(func(t *sched.Tcb_t) {
		got, ok := e.sat(t.Evwant, t.Evopt)
		if !ok {
			return
		}
		t.Evgot = got
		if t.Evopt&defs.EVENT_CLEAR != 0 {
			clear |= got
		}
		e.wq.Remove(t)
		k.Wakeup(t, 0)
		woke = true
	})
	e.set &^= clear
	if woke {
		k.Sched()
	}
	k.Unlock()
	return 0
}

// Recv waits for any (OR) or all (AND) bits of want, returning the
// delivered bits. exactly one of EVENT_AND and EVENT_OR is required.
func (e *Event_t) Recv(want uint32, opt int, timeout int) (uint32, defs.Err_t) {
	if want == 0 {
		return 0, -defs.EINVAL
	}
	and := opt&defs.EVENT_AND != 0
	or := opt&defs.EVENT_OR != 0
	if and == or {
		return 0, -defs.EINVAL
	}
	k := e.k
	k.Lock()
	if got, ok := e.sat(want, opt); ok {
		if opt&defs.EVENT_CLEAR != 0 {
			e.set &^= got
		}
		k.Unlock()
		return got, 0
	}
	if timeout == defs.WAIT_NONE {
		k.Unlock()
		return 0, -defs.ETIMEOUT
	}
	me := k.Blockcheck()
	me.Evwant = want
	me.Evopt = opt
	me.Evgot = 0
	if err := k.Sleep(&e.wq, timeout); err != 0 {
		k.Unlock()
		return 0, err
	}
	got := me.Evgot
	k.Unlock()
	return got, 0
}

func (e *Event_t) Peek() uint32 {
	e.k.Lock()
	set := e.set
	e.k.Unlock()
	return set
}

func (e *Event_t) Detach() defs.Err_t {
	k := e.k
	k.Lock()
	for t := e.wq.Deq(); t != nil; t = e.wq.Deq() {
		k.Wakeup(t, -defs.ERROR)
	}
	k.Sched()
	k.Unlock()
	e.objdel()
	return 0
}
