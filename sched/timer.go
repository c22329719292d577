package sched

// the tick source is external: the host (a hardware timer interrupt
// in a real port, the test harness here) calls Tick once per tick.
// timers fire in deadline order under the kernel lock, in interrupt
// context.

type Ktimer_t struct {
	when  int64
	f     func()
	next  *Ktimer_t
	armed bool
}

// with the kernel locked; keeps the list sorted, ties fire in
// registration order.
func (k *Ksched_t) timeradd(when int64, f func()) *Ktimer_t {
	t := &Ktimer_t{when: when, f: f, armed: true}
	var prev *Ktimer_t
	for n := k.timers; n != nil && n.when <= when; n = n.next {
		prev = n
	}
	if prev == nil {
		t.next = k.timers
		k.timers = t
	} else {
		t.next = prev.next
		prev.next = t
	}
	return t
}

// with the kernel locked
func (k *Ksched_t) timerdel(t *Ktimer_t) {
	if !t.armed {
		return
	}
	t.armed = false
	if k.timers == t {
		k.timers = t.next
		return
	}
	for n := k.timers; n != nil; n = n.next {
		if n.next == t {
			n.next = t.next
			return
		}
	}
}

// Register_timeout arms f to fire delta ticks from now. f runs in
// interrupt context with the kernel locked.
func (k *Ksched_t) Register_timeout(delta int64, f func()) *Ktimer_t {
	k.Lock()
	t := k.timeradd(k.now+delta, f)
	k.Unlock()
	return t
}

// Cancel_timeout disarms a timer; canceling one that already fired is
// a no-op.
func (k *Ksched_t) Cancel_timeout(t *Ktimer_t) {
	k.Lock()
	k.timerdel(t)
	k.Unlock()
}

func (k *Ksched_t) Now() int64 {
	k.Lock()
	n := k.now
	k.Unlock()
	return n
}

// Tick advances kernel time by one tick: due timers fire and the
// running thread's quantum is charged. a drained quantum marks a
// round-robin rotation for the thread's next scheduling point.
func (k *Ksched_t) Tick() {
	k.Lock()
	k.irqlevel++
	k.now++
	k.St.Ntick.Inc()
	for k.timers != nil && k.timers.when <= k.now {
		t := k.timers
		k.timers = t.next
		t.armed = false
		t.f()
	}
	if k.cur != k.idle {
		cur := k.Current()
		cur.slice--
		if cur.slice <= 0 {
			k.resched = true
		}
	}
	k.irqlevel--
	if k.irqlevel == 0 && k.cur == k.idle && k.rdygrp != 0 {
		select {
		case k.idlekick <- struct{}{}:
		default:
		}
	}
	k.Unlock()
}
