package boot

import "github.com/cockroachdb/errors"

// The three fatal failure kinds of a handover attempt. Device-tree trouble
// is advisory and never surfaces through these; see SetInitrd.
var (
	// ErrInvalidImage reports a kernel image that failed header
	// validation. Nothing has been allocated when it is returned.
	ErrInvalidImage = errors.New("invalid kernel image")

	// ErrAllocationFailed reports that the firmware could not satisfy a
	// memory request. The platform status travels with it; errors.Is
	// matches the kind, efi.GetStatus recovers the raw word.
	ErrAllocationFailed = errors.New("memory allocation failed")

	// ErrHandoverFailed reports that the kernel entry point returned,
	// which a successful handover never does.
	ErrHandoverFailed = errors.New("kernel entry point returned")
)
