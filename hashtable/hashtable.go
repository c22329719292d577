package hashtable

import "sync"
import "sync/atomic"
import "unsafe"

// a hash table mapping int32 handles to kernel objects. lookups are
// lock-free; inserts and deletes take a per-bucket lock. buckets keep
// their chains sorted by hashed key so probes can stop early.

type elem_t struct {
	key     int32
	value   interface{}
	keyhash uint32
	next    *elem_t
}

type bucket_t struct {
	sync.Mutex
	first *elem_t
}

type Hashtable_t struct {
	table []*bucket_t
}

func MkHash(size int) *Hashtable_t {
	ht := &Hashtable_t{}
	ht.table = make([]*bucket_t, size)
	for i := range ht.table {
		ht.table[i] = &bucket_t{}
	}
	return ht
}

func khash(key int32) uint32 {
	return uint32(2654435761) * uint32(key)
}

func (ht *Hashtable_t) bucket(keyhash uint32) *bucket_t {
	return ht.table[int(keyhash%uint32(len(ht.table)))]
}

func (ht *Hashtable_t) Get(key int32) (interface{}, bool) {
	kh := khash(key)
	b := ht.bucket(kh)
	for e := b.first; e != nil; e = loadptr(&e.next) {
		if e.keyhash == kh && e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

func (ht *Hashtable_t) Set(key int32, value interface{}) {
	kh := khash(key)
	b := ht.bucket(kh)
	b.Lock()
	defer b.Unlock()

	add := func(last *elem_t) {
		if last == nil {
			n := &elem_t{key: key, value: value, keyhash: kh, next: b.first}
			storeptr(&b.first, n)
		} else {
			n := &elem_t{key: key, value: value, keyhash: kh, next: last.next}
			storeptr(&last.next, n)
		}
	}

	var last *elem_t
	for e := b.first; e != nil; e = e.next {
		if e.keyhash == kh && e.key == key {
			e.value = value
			return
		}
		if kh < e.keyhash {
			add(last)
			return
		}
		last = e
	}
	add(last)
}

func (ht *Hashtable_t) Del(key int32) {
	kh := khash(key)
	b := ht.bucket(kh)
	b.Lock()
	defer b.Unlock()

	var last *elem_t
	for e := b.first; e != nil; e = e.next {
		if e.keyhash == kh && e.key == key {
			if last == nil {
				storeptr(&b.first, e.next)
			} else {
				storeptr(&last.next, e.next)
			}
			return
		}
		if kh < e.keyhash {
			panic("del of non-existing key")
		}
		last = e
	}
	panic("del of non-existing key")
}

// Iter may execute concurrently with lookups, inserts, and deletes;
// f returning false stops the walk.
func (ht *Hashtable_t) Iter(f func(int32, interface{}) bool) {
	for _, b := range ht.table {
		for e := loadptr(&b.first); e != nil; e = loadptr(&e.next) {
			if !f(e.key, e.value) {
				return
			}
		}
	}
}

func loadptr(e **elem_t) *elem_t {
	ptr := (*unsafe.Pointer)(unsafe.Pointer(e))
	return (*elem_t)(atomic.LoadPointer(ptr))
}

func storeptr(p **elem_t, n *elem_t) {
	ptr := (*unsafe.Pointer)(unsafe.Pointer(p))
	atomic.StorePointer(ptr, unsafe.Pointer(n))
}
