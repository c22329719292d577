package sched

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/kdiag"

// Waitq_t is an intrusive queue of blocked (or ready) threads, linked
// through the tcb tid fields. ordering is fifo or by priority, fixed
// at init. all operations require the kernel lock.
type Waitq_t struct {
	k    *Ksched_t
	mode int
	head defs.Tid_t
	tail defs.Tid_t
	cnt  int
}

func (q *Waitq_t) Winit(k *Ksched_t, mode int) {
	kdiag.Kassert(mode == defs.WAIT_FIFO || mode == defs.WAIT_PRIO, "bad wait mode")
	q.k = k
	q.mode = mode
	q.head = defs.NOTID
	q.tail = defs.NOTID
	q.cnt = 0
}

func (q *Waitq_t) Len() int {
	return q.cnt
}

func (q *Waitq_t) Empty() bool {
	return q.cnt == 0
}

func (q *Waitq_t) Head() *Tcb_t {
	if q.head == defs.NOTID {
		return nil
	}
	return q.k.tcbs[q.head]
}

func (q *Waitq_t) Enq(t *Tcb_t) {
	kdiag.Kassert(t.onq == nil, "tcb already queued")
	t.onq = q
	t.wnext = defs.NOTID
	t.wprev = defs.NOTID
	q.cnt++
	if q.head == defs.NOTID {
		q.head = t.Tid
		q.tail = t.Tid
		return
	}
	if q.mode == defs.WAIT_PRIO {
		// before the first less urgent waiter; equal priorities
		// keep arrival order
		for id := q.head; id != defs.NOTID; {
			n := q.k.tcbs[id]
			if t.prio < n.prio {
				q.insbefore(t, n)
				return
			}
			id = n.wnext
		}
	}
	tl := q.k.tcbs[q.tail]
	tl.wnext = t.Tid
	t.wprev = tl.Tid
	q.tail = t.Tid
}

func (q *Waitq_t) insbefore(t, n *Tcb_t) {
	t.wnext = n.Tid
	t.wprev = n.wprev
	if n.wprev != defs.NOTID {
		q.k.tcbs[n.wprev].wnext = t.Tid
	} else {
		q.head = t.Tid
	}
	n.wprev = t.Tid
}

func (q *Waitq_t) Remove(t *Tcb_t) {
	kdiag.Kassert(t.onq == q, "tcb not on this queue")
	if t.wprev != defs.NOTID {
		q.k.tcbs[t.wprev].wnext = t.wnext
	} else {
		q.head = t.wnext
	}
	if t.wnext != defs.NOTID {
		q.k.tcbs[t.wnext].wprev = t.wprev
	} else {
		q.tail = t.wprev
	}
	t.onq = nil
	t.wnext = defs.NOTID
	t.wprev = defs.NOTID
	q.cnt--
}

func (q *Waitq_t) Deq() *Tcb_t {
	t := q.Head()
	if t != nil {
		q.Remove(t)
	}
	return t
}

// Each visits every queued tcb. f may remove its argument but no
// other entry.
func (q *Waitq_t) Each(f func(*Tcb_t)) {
	for id := q.head; id != defs.NOTID; {
		t := q.k.tcbs[id]
		id = t.wnext
		f(t)
	}
}

// reorder after t's priority changed; a no-op for fifo queues.
func (q *Waitq_t) requeue(t *Tcb_t) {
	if q.mode == defs.WAIT_PRIO {
		q.Remove(t)
		q.Enq(t)
	}
}
