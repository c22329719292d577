package ipc

import "strings"
import "sync/atomic"
import "testing"

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/kdiag"

func TestLookupDelete(t *testing.T) {
	k := mkk()
	s, _ := Mksem(k, "dyn", 1, defs.WAIT_PRIO)
	o, ok := Lookup(s.Oid())
	if !ok {
		t.Fatalf("Lookup of live object failed")
	}
	if o.Objname() != "dyn" || o.Objkind() != KSEM {
		t.Fatalf("lookup = %s/%v, want dyn/sem", o.Objname(), o.Objkind())
	}
	if err := Delete(s.Oid()); err != 0 {
		t.Fatalf("Delete = %v, want 0", err)
	}
	if _, ok := Lookup(s.Oid()); ok {
		t.Fatalf("deleted object still resolves")
	}
	if err := Delete(s.Oid()); err != -defs.EINVAL {
		t.Fatalf("double delete = %v, want -EINVAL", err)
	}
}

func TestDetachWakesWaiters(t *testing.T) {
	k := mkk()
	s, _ := Mksem(k, "victim", 0, defs.WAIT_PRIO)
	var res defs.Err_t = -99
	var woke int32
	tc := mkthread(t, k, "taker", 3, func() {
		res = s.Take(defs.WAIT_FOREVER)
		atomic.StoreInt32(&woke, 1)
	})
	k.Thread_startup(tc)
	waitcond(t, "taker blocked", func() bool { return tstate(k, tc) == defs.TBLOCKED })
	if err := s.Detach(); err != 0 {
		t.Fatalf("Detach = %v, want 0", err)
	}
	tc.Join()
	if atomic.LoadInt32(&woke) != 1 || res != -defs.ERROR {
		t.Fatalf("evicted waiter = %v, want -ERROR", res)
	}
}

func TestListObjects(t *testing.T) {
	k := mkk()
	Mkmutex(k, "listed.mutex")
	Mkevent(k, "listed.event", defs.WAIT_FIFO)
	var sb strings.Builder
	kdiag.Setoutput(func(s string) { sb.WriteString(s) })
	List_objects()
	kdiag.Setoutput(func(s string) {})
	out := sb.String()
	for _, want := range []string{"listed.mutex", "listed.event", "mutex", "event"} {
		if !strings.Contains(out, want) {
			t.Fatalf("object list missing %q: %q", want, out)
		}
	}
	sb.Reset()
	kdiag.Setoutput(func(s string) { sb.WriteString(s) })
	List_kind(KEVENT)
	kdiag.Setoutput(func(s string) {})
	out = sb.String()
	if !strings.Contains(out, "listed.event") || strings.Contains(out, "listed.mutex") {
		t.Fatalf("kind list wrong: %q", out)
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind_t]string{
		KMUTEX:   "mutex",
		KCONDVAR: "condvar",
		KRWLOCK:  "rwlock",
		KSEM:     "sem",
		KEVENT:   "event",
		KMBOX:    "mbox",
		KMSGQ:    "msgq",
	}
	for kd, want := range kinds {
		if kd.String() != want {
			t.Fatalf("String(%d) = %q, want %q", int(kd), kd.String(), want)
		}
	}
}
