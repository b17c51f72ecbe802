// Package ustr implements the owned byte-string type used for process
// names and other kernel-held strings that must not alias caller memory.
package ustr

/// Ustr is an immutable owned byte string used for a process's Name field
/// and similar kernel-owned text.
type Ustr []uint8

/// Eq compares two Ustr values for equality.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

/// MkUstr creates an empty Ustr value.
func MkUstr() Ustr {
	return Ustr{}
}

/// MkUstrSlice converts a NUL-terminated byte slice to a Ustr, truncating
/// at the first NUL. Used when a process name arrives from a raw argument
/// buffer copied out of user memory.
func MkUstrSlice(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == 0 {
			cp := make(Ustr, i)
			copy(cp, buf[:i])
			return cp
		}
	}
	cp := make(Ustr, len(buf))
	copy(cp, buf)
	return cp
}

/// String converts the Ustr to a Go string for logging.
func (us Ustr) String() string {
	return string(us)
}
