//go:build amd64

package boot

// 64-bit loaders enter the handover protocol 512 bytes past the 32-bit
// trampoline at the start of the handover region.
const handoverSkip = 512
