package ipc

import "testing"
import "time"

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/sched"

func mkk() *sched.Ksched_t {
	return sched.MkSched(0)
}

func waitcond(t *testing.T, what string, f func() bool) {
	t.Helper()
	for i := 0; i < 5000; i++ {
		if f() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func tstate(k *sched.Ksched_t, tc *sched.Tcb_t) defs.Tstate_t {
	k.Lock()
	s := tc.State()
	k.Unlock()
	return s
}

func tprio(k *sched.Ksched_t, tc *sched.Tcb_t) int {
	k.Lock()
	p := tc.Prio()
	k.Unlock()
	return p
}

func mkthread(t *testing.T, k *sched.Ksched_t, name string, prio int, entry func()) *sched.Tcb_t {
	t.Helper()
	tc, err := k.Thread_init(name, prio, entry)
	if err != 0 {
		t.Fatalf("Thread_init(%s) = %v, want 0", name, err)
	}
	return tc
}

// startup from host context while threads may be running; bracketed
// as an interrupt so the switch is deferred.
func istart(k *sched.Ksched_t, tc *sched.Tcb_t) {
	k.Irq_enter()
	k.Thread_startup(tc)
	k.Irq_exit()
}
