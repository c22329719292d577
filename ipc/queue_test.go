package ipc

import "bytes"
import "sync/atomic"
import "testing"

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/limits"

func TestSemCounting(t *testing.T) {
	k := mkk()
	s, err := Mksem(k, "counting", 2, defs.WAIT_PRIO)
	if err != 0 {
		t.Fatalf("Mksem = %v, want 0", err)
	}
	var res [4]defs.Err_t
	tc := mkthread(t, k, "taker", 3, func() {
		res[0] = s.Take(defs.WAIT_FOREVER)
		res[1] = s.Take(defs.WAIT_FOREVER)
		res[2] = s.Trytake()
		s.Give()
		res[3] = s.Trytake()
	})
	k.Thread_startup(tc)
	tc.Join()
	if res[0] != 0 || res[1] != 0 {
		t.Fatalf("takes = %v %v, want 0 0", res[0], res[1])
	}
	if res[2] != -defs.ETIMEOUT {
		t.Fatalf("trytake on empty = %v, want -ETIMEOUT", res[2])
	}
	if res[3] != 0 {
		t.Fatalf("trytake after give = %v, want 0", res[3])
	}
	if n := s.Count(); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}

func TestSemBlockedTakerWakes(t *testing.T) {
	k := mkk()
	s, _ := Mksem(k, "empty", 0, defs.WAIT_PRIO)
	var res defs.Err_t = -99
	tc := mkthread(t, k, "taker", 3, func() {
		res = s.Take(defs.WAIT_FOREVER)
	})
	k.Thread_startup(tc)
	waitcond(t, "taker blocked", func() bool { return tstate(k, tc) == defs.TBLOCKED })
	if err := s.Give(); err != 0 {
		t.Fatalf("Give = %v, want 0", err)
	}
	tc.Join()
	if res != 0 {
		t.Fatalf("take = %v, want 0", res)
	}
}

func TestSemTimeout(t *testing.T) {
	k := mkk()
	s, _ := Mksem(k, "dry", 0, defs.WAIT_PRIO)
	var res defs.Err_t
	tc := mkthread(t, k, "taker", 3, func() {
		res = s.Take(5)
	})
	k.Thread_startup(tc)
	waitcond(t, "taker blocked", func() bool { return tstate(k, tc) == defs.TBLOCKED })
	for i := 0; i < 5; i++ {
		k.Tick()
	}
	tc.Join()
	if res != -defs.ETIMEOUT {
		t.Fatalf("take = %v, want -ETIMEOUT", res)
	}
}

func TestSemInitBadCount(t *testing.T) {
	k := mkk()
	if _, err := Mksem(k, "neg", -1, defs.WAIT_PRIO); err != -defs.EINVAL {
		t.Fatalf("negative count = %v, want -EINVAL", err)
	}
	if _, err := Mksem(k, "big", limits.Syslimit.Semmax+1, defs.WAIT_PRIO); err != -defs.EINVAL {
		t.Fatalf("oversized count = %v, want -EINVAL", err)
	}
}

func TestEventAndClear(t *testing.T) {
	k := mkk()
	e := Mkevent(k, "flags", defs.WAIT_PRIO)
	var got uint32
	var res defs.Err_t = -99
	var woke int32
	tc := mkthread(t, k, "recv", 3, func() {
		got, res = e.Recv(0x3, defs.EVENT_AND|defs.EVENT_CLEAR, defs.WAIT_FOREVER)
		atomic.StoreInt32(&woke, 1)
	})
	k.Thread_startup(tc)
	waitcond(t, "receiver blocked", func() bool { return tstate(k, tc) == defs.TBLOCKED })
	e.Send(0x1)
	if atomic.LoadInt32(&woke) != 0 {
		t.Fatalf("woke on partial AND mask")
	}
	e.Send(0x2)
	tc.Join()
	if res != 0 || got != 0x3 {
		t.Fatalf("recv = %#x/%v, want 0x3/0", got, res)
	}
	if set := e.Peek(); set != 0 {
		t.Fatalf("set after clear = %#x, want 0", set)
	}
}

func TestEventOr(t *testing.T) {
	k := mkk()
	e := Mkevent(k, "orflags", defs.WAIT_PRIO)
	e.Send(0x5)
	var got uint32
	var res defs.Err_t
	tc := mkthread(t, k, "recv", 3, func() {
		got, res = e.Recv(0x4, defs.EVENT_OR|defs.EVENT_CLEAR, defs.WAIT_NONE)
	})
	k.Thread_startup(tc)
	tc.Join()
	if res != 0 || got != 0x4 {
		t.Fatalf("recv = %#x/%v, want 0x4/0", got, res)
	}
	if set := e.Peek(); set != 0x1 {
		t.Fatalf("set = %#x, want 0x1", set)
	}
}

func TestEventBadArgs(t *testing.T) {
	k := mkk()
	e := Mkevent(k, "bad", defs.WAIT_PRIO)
	var res [4]defs.Err_t
	tc := mkthread(t, k, "recv", 3, func() {
		_, res[0] = e.Recv(0, defs.EVENT_OR, defs.WAIT_NONE)
		_, res[1] = e.Recv(0x1, defs.EVENT_AND|defs.EVENT_OR, defs.WAIT_NONE)
		_, res[2] = e.Recv(0x1, defs.EVENT_CLEAR, defs.WAIT_NONE)
		_, res[3] = e.Recv(0x1, defs.EVENT_OR, defs.WAIT_NONE)
	})
	k.Thread_startup(tc)
	tc.Join()
	if res[0] != -defs.EINVAL || res[1] != -defs.EINVAL || res[2] != -defs.EINVAL {
		t.Fatalf("bad args = %v %v %v, want -EINVAL each", res[0], res[1], res[2])
	}
	if res[3] != -defs.ETIMEOUT {
		t.Fatalf("empty non-blocking recv = %v, want -ETIMEOUT", res[3])
	}
	if err := e.Send(0); err != -defs.EINVAL {
		t.Fatalf("send of empty set = %v, want -EINVAL", err)
	}
}

func TestMboxRing(t *testing.T) {
	k := mkk()
	b, err := Mkmbox(k, "ring", 2, defs.WAIT_PRIO)
	if err != 0 {
		t.Fatalf("Mkmbox = %v, want 0", err)
	}
	var sres [3]defs.Err_t
	var vals [2]uintptr
	var eres defs.Err_t
	tc := mkthread(t, k, "io", 3, func() {
		sres[0] = b.Trysend(11)
		sres[1] = b.Trysend(22)
		sres[2] = b.Trysend(33)
		vals[0], _ = b.Tryrecv()
		vals[1], _ = b.Tryrecv()
		_, eres = b.Tryrecv()
	})
	k.Thread_startup(tc)
	tc.Join()
	if sres[0] != 0 || sres[1] != 0 {
		t.Fatalf("sends = %v %v, want 0 0", sres[0], sres[1])
	}
	if sres[2] != -defs.EFULL {
		t.Fatalf("send to full mailbox = %v, want -EFULL", sres[2])
	}
	if vals[0] != 11 || vals[1] != 22 {
		t.Fatalf("recv order = %d %d, want 11 22", vals[0], vals[1])
	}
	if eres != -defs.EEMPTY {
		t.Fatalf("recv from empty mailbox = %v, want -EEMPTY", eres)
	}
}

func TestMboxBlockedReceiver(t *testing.T) {
	k := mkk()
	b, _ := Mkmbox(k, "handoff", 2, defs.WAIT_PRIO)
	var val uintptr
	var res defs.Err_t = -99
	tc := mkthread(t, k, "recv", 3, func() {
		val, res = b.Recv(defs.WAIT_FOREVER)
	})
	k.Thread_startup(tc)
	waitcond(t, "receiver blocked", func() bool { return tstate(k, tc) == defs.TBLOCKED })
	if err := b.Trysend(42); err != 0 {
		t.Fatalf("send = %v, want 0", err)
	}
	tc.Join()
	if res != 0 || val != 42 {
		t.Fatalf("recv = %d/%v, want 42/0", val, res)
	}
}

func TestMboxBlockedSender(t *testing.T) {
	k := mkk()
	b, _ := Mkmbox(k, "full", 1, defs.WAIT_PRIO)
	var res defs.Err_t = -99
	tc := mkthread(t, k, "send", 3, func() {
		b.Trysend(1)
		res = b.Send(2, defs.WAIT_FOREVER)
	})
	k.Thread_startup(tc)
	waitcond(t, "sender blocked", func() bool { return tstate(k, tc) == defs.TBLOCKED })
	v, err := b.Tryrecv()
	if err != 0 || v != 1 {
		t.Fatalf("recv = %d/%v, want 1/0", v, err)
	}
	tc.Join()
	if res != 0 {
		t.Fatalf("blocked send = %v, want 0", res)
	}
	waitcond(t, "second mail arrives", func() bool {
		v, err := b.Tryrecv()
		return err == 0 && v == 2
	})
}

func TestMsgqUrgent(t *testing.T) {
	k := mkk()
	q, err := Mkmsgq(k, "urgent", 16, 4, defs.WAIT_PRIO)
	if err != 0 {
		t.Fatalf("Mkmsgq = %v, want 0", err)
	}
	var first, second []uint8
	tc := mkthread(t, k, "io", 3, func() {
		q.Send([]uint8("normal"), defs.WAIT_NONE)
		q.Send_urgent([]uint8("urgent"), defs.WAIT_NONE)
		buf := make([]uint8, 16)
		n, _ := q.Recv(buf, defs.WAIT_NONE)
		first = append([]uint8(nil), buf[:n]...)
		n, _ = q.Recv(buf, defs.WAIT_NONE)
		second = append([]uint8(nil), buf[:n]...)
	})
	k.Thread_startup(tc)
	tc.Join()
	if !bytes.Equal(first, []uint8("urgent")) || !bytes.Equal(second, []uint8("normal")) {
		t.Fatalf("recv order = %q %q, want urgent normal", first, second)
	}
}

func TestMsgqLimits(t *testing.T) {
	k := mkk()
	if _, err := Mkmsgq(k, "bad", 0, 4, defs.WAIT_PRIO); err != -defs.EINVAL {
		t.Fatalf("zero msgsize = %v, want -EINVAL", err)
	}
	if _, err := Mkmsgq(k, "bad", limits.Syslimit.Msgmax+1, 4, defs.WAIT_PRIO); err != -defs.EINVAL {
		t.Fatalf("oversized msgsize = %v, want -EINVAL", err)
	}
	q, _ := Mkmsgq(k, "tiny", 8, 1, defs.WAIT_PRIO)
	var res [3]defs.Err_t
	tc := mkthread(t, k, "io", 3, func() {
		res[0] = q.Trysend([]uint8("123456789"))
		res[1] = q.Trysend([]uint8("ok"))
		res[2] = q.Trysend([]uint8("no"))
	})
	k.Thread_startup(tc)
	tc.Join()
	if res[0] != -defs.EINVAL {
		t.Fatalf("oversized message = %v, want -EINVAL", res[0])
	}
	if res[1] != 0 {
		t.Fatalf("send = %v, want 0", res[1])
	}
	if res[2] != -defs.EFULL {
		t.Fatalf("send to full queue = %v, want -EFULL", res[2])
	}
}

func TestMsgqBlockedReceiver(t *testing.T) {
	k := mkk()
	q, _ := Mkmsgq(k, "direct", 16, 2, defs.WAIT_PRIO)
	buf := make([]uint8, 16)
	var n int
	var res defs.Err_t = -99
	tc := mkthread(t, k, "recv", 3, func() {
		n, res = q.Recv(buf, defs.WAIT_FOREVER)
	})
	k.Thread_startup(tc)
	waitcond(t, "receiver blocked", func() bool { return tstate(k, tc) == defs.TBLOCKED })
	if err := q.Trysend([]uint8("hello")); err != 0 {
		t.Fatalf("send = %v, want 0", err)
	}
	tc.Join()
	if res != 0 || !bytes.Equal(buf[:n], []uint8("hello")) {
		t.Fatalf("recv = %q/%v, want hello/0", buf[:n], res)
	}
}

func TestMsgqRecvTimeout(t *testing.T) {
	k := mkk()
	q, _ := Mkmsgq(k, "quiet", 16, 2, defs.WAIT_PRIO)
	var res defs.Err_t
	tc := mkthread(t, k, "recv", 3, func() {
		buf := make([]uint8, 16)
		_, res = q.Recv(buf, 3)
	})
	k.Thread_startup(tc)
	waitcond(t, "receiver blocked", func() bool { return tstate(k, tc) == defs.TBLOCKED })
	for i := 0; i < 3; i++ {
		k.Tick()
	}
	tc.Join()
	if res != -defs.ETIMEOUT {
		t.Fatalf("recv = %v, want -ETIMEOUT", res)
	}
}
