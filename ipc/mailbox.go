package ipc

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/limits"
import "github.com/zhanghe-vivo/kernel/sched"

// a mailbox: a bounded ring of word-sized mails. a blocked receiver
// gets its mail handed over directly; blocked senders retry once a
// slot frees up.
type Mbox_t struct {
	Kobj_t
	k    *sched.Ksched_t
	ring []uintptr
	head int
	cnt  int
	swq  sched.Waitq_t
	rwq  sched.Waitq_t
}

func Mkmbox(k *sched.Ksched_t, name string, slots int, mode int) (*Mbox_t, defs.Err_t) {
	b := &Mbox_t{}
	if err := b.Mboxinit(k, name, slots, mode); err != 0 {
		return nil, err
	}
	return b, 0
}

func (b *Mbox_t) Mboxinit(k *sched.Ksched_t, name string, slots int, mode int) defs.Err_t {
	if slots < 0 {
		return -defs.EINVAL
	}
	if slots == 0 {
		slots = limits.Syslimit.Mboxcap
	}
	b.k = k
	b.ring = make([]uintptr, slots)
	b.swq.Winit(k, mode)
	b.rwq.Winit(k, mode)
	b.objinit(name, KMBOX, b)
	return 0
}

func (b *Mbox_t) Waiters() int {
	b.k.Lock()
	n := b.swq.Len() + b.rwq.Len()
	b.k.Unlock()
	return n
}

func (b *Mbox_t) Send(v uintptr, timeout int) defs.Err_t {
	k := b.k
	k.Lock()
	if t := b.rwq.Deq(); t != nil {
		t.Mailval = v
		k.Wakeup(t, 0)
		k.Sched()
		k.Unlock()
		return 0
	}
	for b.cnt == len(b.ring) {
		if timeout == defs.WAIT_NONE {
			k.Unlock()
			return -defs.EFULL
		}
		if err := k.Sleep(&b.swq, timeout); err != 0 {
			k.Unlock()
			return err
		}
	}
	b.ring[(b.head+b.cnt)%len(b.ring)] = v
	b.cnt++
	k.Unlock()
	return 0
}

func (b *Mbox_t) Trysend(v uintptr) defs.Err_t {
	return b.Send(v, defs.WAIT_NONE)
}

func (b *Mbox_t) Recv(timeout int) (uintptr, defs.Err_t) {
	k := b.k
	k.Lock()
	if b.cnt > 0 {
		v := b.ring[b.head]
		b.head = (b.head + 1) % len(b.ring)
		b.cnt--
		if t := b.swq.Deq(); t != nil {
			k.Wakeup(t, 0)
			k.Sched()
		}
		k.Unlock()
		return v, 0
	}
	if timeout == defs.WAIT_NONE {
		k.Unlock()
		return 0, -defs.EEMPTY
	}
	me := k.Blockcheck()
	me.Mailval = 0
	if err := k.Sleep(&b.rwq, timeout); err != 0 {
		k.Unlock()
		return 0, err
	}
	v := me.Mailval
	k.Unlock()
	return v, 0
}

func (b *Mbox_t) Tryrecv() (uintptr, defs.Err_t) {
	return b.Recv(defs.WAIT_NONE)
}

func (b *Mbox_t) Detach() defs.Err_t {
	k := b.k
	k.Lock()
	for t := b.swq.Deq(); t != nil; t = b.swq.Deq() {
		k.Wakeup(t, -defs.ERROR)
	}
	for t := b.rwq.Deq(); t != nil; t = b.rwq.Deq() {
		k.Wakeup(t, -defs.ERROR)
	}
	k.Sched()
	k.Unlock()
	b.objdel()
	return 0
}
