//go:build !amd64

package efi

// Interrupt masking before the jump is an x86 protocol requirement only;
// the ARM64 stub entry takes care of its own state.
func maskInterrupts() {}
