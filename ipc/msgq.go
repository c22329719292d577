package ipc

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/limits"
import "github.com/zhanghe-vivo/kernel/sched"

// a message queue: a bounded ring of variable-length messages with a
// fixed per-message ceiling. urgent sends jump the line by pushing at
// the front. a blocked receiver gets the message copied straight into
// its buffer.
type Msgq_t struct {
	Kobj_t
	k       *sched.Ksched_t
	slots   [][]uint8
	lens    []int
	head    int
	cnt     int
	msgsize int
	swq     sched.Waitq_t
	rwq     sched.Waitq_t
}

func Mkmsgq(k *sched.Ksched_t, name string, msgsize, qlen int, mode int) (*Msgq_t, defs.Err_t) {
	q := &Msgq_t{}
	if err := q.Mqinit(k, name, msgsize, qlen, mode); err != 0 {
		return nil, err
	}
	return q, 0
}

func (q *Msgq_t) Mqinit(k *sched.Ksched_t, name string, msgsize, qlen int, mode int) defs.Err_t {
	if msgsize <= 0 || msgsize > limits.Syslimit.Msgmax || qlen < 0 {
		return -defs.EINVAL
	}
	if qlen == 0 {
		qlen = limits.Syslimit.Msgqcap
	}
	q.k = k
	q.msgsize = msgsize
	q.slots = make([][]uint8, qlen)
	for i := range q.slots {
		q.slots[i] = make([]uint8, msgsize)
	}
	q.lens = make([]int, qlen)
	q.swq.Winit(k, mode)
	q.rwq.Winit(k, mode)
	q.objinit(name, KMSGQ, q)
	return 0
}

func (q *Msgq_t) Waiters() int {
	q.k.Lock()
	n := q.swq.Len() + q.rwq.Len()
	q.k.Unlock()
	return n
}

func (q *Msgq_t) Send(msg []uint8, timeout int) defs.Err_t {
	return q.send(msg, timeout, false)
}

// Send_urgent queues at the front so the message is received next.
func (q *Msgq_t) Send_urgent(msg []uint8, timeout int) defs.Err_t {
	return q.send(msg, timeout, true)
}

func (q *Msgq_t) Trysend(msg []uint8) defs.Err_t {
	return q.send(msg, defs.WAIT_NONE, false)
}

func (q *Msgq_t) send(msg []uint8, timeout int, urgent bool) defs.Err_t {
	if len(msg) == 0 || len(msg) > q.msgsize {
		return -defs.EINVAL
	}
	k := q.k
	k.Lock()
	if t := q.rwq.Deq(); t != nil {
		t.Msglen = copy(t.Msgbuf, msg)
		k.Wakeup(t, 0)
		k.Sched()
		k.Unlock()
		return 0
	}
	for q.cnt == len(q.slots) {
		if timeout == defs.WAIT_NONE {
			k.Unlock()
			return -defs.EFULL
		}
		if err := k.Sleep(&q.swq, timeout); err != 0 {
			k.Unlock()
			return err
		}
	}
	var idx int
	if urgent {
		q.head = (q.head - 1 + len(q.slots)) % len(q.slots)
		idx = q.head
	} else {
		idx = (q.head + q.cnt) % len(q.slots)
	}
	q.lens[idx] = copy(q.slots[idx], msg)
	q.cnt++
	k.Unlock()
	return 0
}

// Recv copies the front message into buf and returns its length.
func (q *Msgq_t) Recv(buf []uint8, timeout int) (int, defs.Err_t) {
	k := q.k
	k.Lock()
	if q.cnt > 0 {
		n := copy(buf, q.slots[q.head][:q.lens[q.head]])
		q.head = (q.head + 1) % len(q.slots)
		q.cnt--
		if t := q.swq.Deq(); t != nil {
			k.Wakeup(t, 0)
			k.Sched()
		}
		k.Unlock()
		return n, 0
	}
	if timeout == defs.WAIT_NONE {
		k.Unlock()
		return 0, -defs.EEMPTY
	}
	me := k.Blockcheck()
	me.Msgbuf = buf
	me.Msglen = 0
	err := k.Sleep(&q.rwq, timeout)
	me.Msgbuf = nil
	if err != 0 {
		k.Unlock()
		return 0, err
	}
	n := me.Msglen
	k.Unlock()
	return n, 0
}

func (q *Msgq_t) Tryrecv(buf []uint8) (int, defs.Err_t) {
	return q.Recv(buf, defs.WAIT_NONE)
}

func (q *Msgq_t) Len() int {
	q.k.Lock()
	n := q.cnt
	q.k.Unlock()
	return n
}

func (q *Msgq_t) Detach() defs.Err_t {
	k := q.k
	k.Lock()
	for t := q.swq.Deq(); t != nil; t = q.swq.Deq() {
		k.Wakeup(t, -defs.ERROR)
	}
	for t := q.rwq.Deq(); t != nil; t = q.rwq.Deq() {
		k.Wakeup(t, -defs.ERROR)
	}
	k.Sched()
	k.Unlock()
	q.objdel()
	return 0
}
