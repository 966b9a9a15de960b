//go:build !amd64

package boot

// 32-bit loaders enter the handover region directly.
const handoverSkip = 0
