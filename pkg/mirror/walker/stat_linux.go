//go:build linux

package walker

import "golang.org/x/sys/unix"

// Mtim returns the modification timespec of a stat result.
func Mtim(st *unix.Stat_t) unix.Timespec {
	return st.Mtim
}
