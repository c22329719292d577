package defs

// kernel error codes. operations return 0 (EOK) on success and the
// negated code on failure, e.g. -ETIMEOUT.
const (
	EOK      Err_t = 0
	ERROR    Err_t = 1
	ETIMEOUT Err_t = 2
	EFULL    Err_t = 3
	EEMPTY   Err_t = 4
	ENOMEM   Err_t = 5
	ENOSYS   Err_t = 6
	EBUSY    Err_t = 7
	EIO      Err_t = 8
	EINTRPT  Err_t = 9
	EINVAL   Err_t = 10
	EDEADLK  Err_t = 11
	EUNKNOWN Err_t = 12
)

type Err_t int

var errstrs = [...]string{
	EOK:      "OK",
	ERROR:    "ERROR",
	ETIMEOUT: "ETIMEOUT",
	EFULL:    "EFULL",
	EEMPTY:   "EEMPTY",
	ENOMEM:   "ENOMEM",
	ENOSYS:   "ENOSYS",
	EBUSY:    "EBUSY",
	EIO:      "EIO",
	EINTRPT:  "EINTRPT",
	EINVAL:   "EINVAL",
	EDEADLK:  "EDEADLK",
	EUNKNOWN: "EUNKNOWN",
}

// Errstr returns the symbolic name for an error code; negative codes
// name the same error as their positive counterpart.
func Errstr(e Err_t) string {
	if e < 0 {
		e = -e
	}
	if int(e) < len(errstrs) {
		return errstrs[e]
	}
	return errstrs[EUNKNOWN]
}
