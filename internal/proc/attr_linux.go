//go:build linux

// Package proc provides platform-specific process attributes.
package proc

import "syscall"

// DetachedSysProcAttr returns attributes that place a spawned process in
// its own session on Linux, detaching it from the controlling terminal.
func DetachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
