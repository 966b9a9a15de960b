//go:build amd64

package efi

// maskInterrupts clears the interrupt flag. The x86 handover protocol
// requires interrupts off before the jump past the trampoline on 64-bit.
//
// Implemented in irq_amd64.s.
func maskInterrupts()
