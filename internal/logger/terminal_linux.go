//go:build linux

package logger

import (
	"syscall"
	"unsafe"
)

// tcgets is Linux's ioctl request for reading terminal attributes (the
// BSDs spell it TIOCGETA; the probe is the same).
const tcgets = 0x5401

// isTerminal reports whether fd is an interactive terminal.
func isTerminal(fd uintptr) bool {
	var termios syscall.Termios
	_, _, errno := syscall.Syscall6(
		syscall.SYS_IOCTL,
		fd,
		tcgets,
		uintptr(unsafe.Pointer(&termios)),
		0, 0, 0,
	)
	return errno == 0
}
