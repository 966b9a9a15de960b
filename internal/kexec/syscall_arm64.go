//go:build linux && arm64

package kexec

// Syscall numbers for arm64.
const (
	sysMemfdCreate   = 279
	sysKexecFileLoad = 294
	sysReboot        = 142
)
