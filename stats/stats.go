package stats

import "reflect"
import "sync/atomic"
import "strconv"
import "strings"
import "unsafe"

const Stats = true

type Counter_t int64

func (c *Counter_t) Inc() {
	if Stats {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, 1)
	}
}

func (c *Counter_t) Read() int64 {
	n := (*int64)(unsafe.Pointer(c))
	return atomic.LoadInt64(n)
}

// Stats2String formats every Counter_t field of st. pass a pointer to
// the live struct; counters racing with writers are then snapshotted
// with atomic loads.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	s := ""
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !strings.HasSuffix(f.Type().String(), "Counter_t") {
			continue
		}
		var n int64
		if f.CanAddr() {
			n = f.Addr().Interface().(*Counter_t).Read()
		} else {
			n = int64(f.Interface().(Counter_t))
		}
		s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(n, 10)
	}
	return s + "\n"
}
