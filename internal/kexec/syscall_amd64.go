//go:build linux && amd64

package kexec

// Syscall numbers for amd64.
const (
	sysMemfdCreate   = 319
	sysKexecFileLoad = 320
	sysReboot        = 169
)
