package ipc

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/limits"
import "github.com/zhanghe-vivo/kernel/sched"

// a counting semaphore.
type Sem_t struct {
	Kobj_t
	k     *sched.Ksched_t
	count int
	wq    sched.Waitq_t
}

func Mksem(k *sched.Ksched_t, name string, count int, mode int) (*Sem_t, defs.Err_t) {
	s := &Sem_t{}
	if err := s.Seminit(k, name, count, mode); err != 0 {
		return nil, err
	}
	return s, 0
}

func (s *Sem_t) Seminit(k *sched.Ksched_t, name string, count int, mode int) defs.Err_t {
	if count < 0 || count > limits.Syslimit.Semmax {
		return -defs.EINVAL
	}
	s.k = k
	s.count = count
	s.wq.Winit(k, mode)
	s.objinit(name, KSEM, s)
	return 0
}

func (s *Sem_t) Waiters() int {
	s.k.Lock()
	n := s.wq.Len()
	s.k.Unlock()
	return n
}

func (s *Sem_t) Take(timeout int) defs.Err_t {
	k := s.k
	k.Lock()
	for s.count == 0 {
		if timeout == defs.WAIT_NONE {
			k.Unlock()
			return -defs.ETIMEOUT
		}
		if err := k.Sleep(&s.wq, timeout); err != 0 {
			k.Unlock()
			return err
		}
	}
	s.count--
	k.Unlock()
	return 0
}

func (s *Sem_t) Trytake() defs.Err_t {
	return s.Take(defs.WAIT_NONE)
}

// Give increments the count and wakes the front waiter. safe from
// interrupt context.
func (s *Sem_t) Give() defs.Err_t {
	k := s.k
	k.Lock()
	if s.count >= limits.Syslimit.Semmax {
		k.Unlock()
		return -defs.EFULL
	}
	s.count++
	if t := s.wq.Deq(); t != nil {
		k.Wakeup(t, 0)
		k.Sched()
	}
	k.Unlock()
	return 0
}

func (s *Sem_t) Count() int {
	s.k.Lock()
	n := s.count
	s.k.Unlock()
	return n
}

func (s *Sem_t) Detach() defs.Err_t {
	k := s.k
	k.Lock()
	for t := s.wq.Deq(); t != nil; t = s.wq.Deq() {
		k.Wakeup(t, -defs.ERROR)
	}
	k.Sched()
	k.Unlock()
	s.objdel()
	return 0
}
