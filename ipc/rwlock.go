package ipc

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/kdiag"
import "github.com/zhanghe-vivo/kernel/sched"

// a reader/writer lock built from a mutex and two condition
// variables. writers are preferred: a blocked writer stalls new
// readers, and a writer's unlock wakes the writer queue before the
// reader queue.
type Rwlock_t struct {
	Kobj_t
	k       *sched.Ksched_t
	m       Mutex_t
	rcond   Condvar_t
	wcond   Condvar_t
	writer  *sched.Tcb_t
	readers int
	rwait   int
	wwait   int
}

func Mkrwlock(k *sched.Ksched_t, name string) *Rwlock_t {
	l := &Rwlock_t{}
	l.Rwinit(k, name)
	return l
}

func (l *Rwlock_t) Rwinit(k *sched.Ksched_t, name string) {
	l.k = k
	l.m.Minit(k, name+".m")
	l.rcond.Cinit(k, name+".rd", defs.WAIT_PRIO)
	l.wcond.Cinit(k, name+".wr", defs.WAIT_PRIO)
	l.objinit(name, KRWLOCK, l)
}

func (l *Rwlock_t) Waiters() int {
	l.k.Lock()
	n := l.rwait + l.wwait
	l.k.Unlock()
	return n
}

func (l *Rwlock_t) Lock_read() defs.Err_t {
	return l.Lock_read_wait(defs.WAIT_FOREVER)
}

func (l *Rwlock_t) Lock_read_wait(timeout int) defs.Err_t {
	if err := l.m.Lock(); err != 0 {
		return err
	}
	// the budget is a deadline so re-waits after a wakeup that lost
	// the race charge the remaining ticks, not a fresh timeout
	var deadline int64
	if timeout > 0 {
		deadline = l.k.Now() + int64(timeout)
	}
	for l.writer != nil || l.wwait > 0 {
		if timeout == defs.WAIT_NONE {
			l.m.Unlock()
			return -defs.EBUSY
		}
		wait := timeout
		if timeout > 0 {
			left := deadline - l.k.Now()
			if left <= 0 {
				l.m.Unlock()
				return -defs.ETIMEOUT
			}
			wait = int(left)
		}
		l.k.Lock()
		l.rwait++
		l.k.Unlock()
		err := l.rcond.Timedwait(&l.m, wait)
		l.k.Lock()
		l.rwait--
		l.k.Unlock()
		if err != 0 {
			l.m.Unlock()
			return err
		}
	}
	l.readers++
	kdiag.Kassert(l.writer == nil, "readers beside a writer")
	l.m.Unlock()
	return 0
}

func (l *Rwlock_t) Try_lock_read() defs.Err_t {
	return l.Lock_read_wait(defs.WAIT_NONE)
}

func (l *Rwlock_t) Lock_write() defs.Err_t {
	return l.Lock_write_wait(defs.WAIT_FOREVER)
}

func (l *Rwlock_t) Lock_write_wait(timeout int) defs.Err_t {
	if err := l.m.Lock(); err != 0 {
		return err
	}
	me := l.curtcb()
	if l.writer == me {
		l.m.Unlock()
		return -defs.EDEADLK
	}
	var deadline int64
	if timeout > 0 {
		deadline = l.k.Now() + int64(timeout)
	}
	for l.writer != nil || l.readers > 0 {
		if timeout == defs.WAIT_NONE {
			l.m.Unlock()
			return -defs.EBUSY
		}
		wait := timeout
		if timeout > 0 {
			left := deadline - l.k.Now()
			if left <= 0 {
				l.m.Unlock()
				return -defs.ETIMEOUT
			}
			wait = int(left)
		}
		l.k.Lock()
		l.wwait++
		l.k.Unlock()
		err := l.wcond.Timedwait(&l.m, wait)
		l.k.Lock()
		l.wwait--
		l.k.Unlock()
		if err != 0 {
			l.m.Unlock()
			return err
		}
	}
	l.writer = me
	kdiag.Kassert(l.readers == 0, "writer beside readers")
	l.m.Unlock()
	return 0
}

func (l *Rwlock_t) Try_lock_write() defs.Err_t {
	return l.Lock_write_wait(defs.WAIT_NONE)
}

// Unlock drops the caller's hold, reader or writer. the last reader
// out wakes one writer; a writer out wakes all writers or, absent
// any, all readers.
func (l *Rwlock_t) Unlock() defs.Err_t {
	if err := l.m.Lock(); err != 0 {
		return err
	}
	me := l.curtcb()
	if l.writer == me {
		l.writer = nil
		if l.wwait > 0 {
			l.wcond.Notify_all()
		} else if l.rwait > 0 {
			l.rcond.Notify_all()
		}
	} else if l.readers > 0 {
		l.readers--
		if l.readers == 0 && l.wwait > 0 {
			l.wcond.Notify()
		}
	} else {
		l.m.Unlock()
		return -defs.ERROR
	}
	l.m.Unlock()
	return 0
}

func (l *Rwlock_t) curtcb() *sched.Tcb_t {
	l.k.Lock()
	t := l.k.Current()
	l.k.Unlock()
	return t
}

func (l *Rwlock_t) Detach() defs.Err_t {
	l.rcond.Detach()
	l.wcond.Detach()
	l.m.Detach()
	l.objdel()
	return 0
}
