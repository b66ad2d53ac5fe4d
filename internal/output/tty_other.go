//go:build !linux

package output

import "os"

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}

// TerminalWidth is unknown off linux.
func TerminalWidth(*os.File) int { return 0 }
