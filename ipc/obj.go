package ipc

import "sync/atomic"

import "github.com/zhanghe-vivo/kernel/defs"
import "github.com/zhanghe-vivo/kernel/hashtable"
import "github.com/zhanghe-vivo/kernel/kdiag"

// every ipc object carries a Kobj_t header and registers itself in
// the object table under a kernel-wide oid. the kind set is closed;
// generic code switches on the tag instead of downcasting blindly.

type Kind_t int

const (
	KMUTEX Kind_t = iota
	KCONDVAR
	KRWLOCK
	KSEM
	KEVENT
	KMBOX
	KMSGQ
)

func (kd Kind_t) String() string {
	switch kd {
	case KMUTEX:
		return "mutex"
	case KCONDVAR:
		return "condvar"
	case KRWLOCK:
		return "rwlock"
	case KSEM:
		return "sem"
	case KEVENT:
		return "event"
	case KMBOX:
		return "mbox"
	case KMSGQ:
		return "msgq"
	}
	return "bad kind"
}

type Kobj_i interface {
	Objname() string
	Objkind() Kind_t
	Oid() int32
	// number of threads blocked on the object
	Waiters() int
	// wake all waiters with -ERROR and unregister
	Detach() defs.Err_t
}

type Kobj_t struct {
	name string
	kind Kind_t
	oid  int32
}

func (o *Kobj_t) Objname() string {
	return o.name
}

func (o *Kobj_t) Objkind() Kind_t {
	return o.kind
}

func (o *Kobj_t) Oid() int32 {
	return o.oid
}

var objtable = hashtable.MkHash(512)
var nextoid int32

func (o *Kobj_t) objinit(name string, kind Kind_t, self Kobj_i) {
	o.name = name
	o.kind = kind
	o.oid = atomic.AddInt32(&nextoid, 1)
	objtable.Set(o.oid, self)
}

func (o *Kobj_t) objdel() {
	objtable.Del(o.oid)
}

// Lookup resolves an oid to its object.
func Lookup(oid int32) (Kobj_i, bool) {
	v, ok := objtable.Get(oid)
	if !ok {
		return nil, false
	}
	return v.(Kobj_i), true
}

// Delete detaches a dynamically created object by handle: all waiters
// wake with -ERROR and the oid stops resolving.
func Delete(oid int32) defs.Err_t {
	o, ok := Lookup(oid)
	if !ok {
		return -defs.EINVAL
	}
	return o.Detach()
}

// List_objects prints one line per registered object to the
// diagnostic sink.
func List_objects() {
	kdiag.Kprintf("%-16s %-8s %8s\n", "name", "kind", "waiters")
	objtable.Iter(func(oid int32, v interface{}) bool {
		o := v.(Kobj_i)
		kdiag.Kprintf("%-16s %-8s %8d\n", o.Objname(), o.Objkind().String(),
			o.Waiters())
		return true
	})
}

// List_kind is List_objects restricted to one kind.
func List_kind(kind Kind_t) {
	objtable.Iter(func(oid int32, v interface{}) bool {
		o := v.(Kobj_i)
		if o.Objkind() == kind {
			kdiag.Kprintf("%-16s %-8s %8d\n", o.Objname(),
				o.Objkind().String(), o.Waiters())
		}
		return true
	})
}
