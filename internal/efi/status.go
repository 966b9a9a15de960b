package efi

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Status is a raw EFI_STATUS word as returned by firmware services.
type Status uint64

const statusErrorBit = 1 << 63

// Error codes this stage can meet. The high bit marks errors per UEFI
// appendix D.
const (
	StatusSuccess          Status = 0
	StatusLoadError        Status = statusErrorBit | 1
	StatusInvalidParameter Status = statusErrorBit | 2
	StatusUnsupported      Status = statusErrorBit | 3
	StatusBufferTooSmall   Status = statusErrorBit | 5
	StatusDeviceError      Status = statusErrorBit | 7
	StatusOutOfResources   Status = statusErrorBit | 9
	StatusNotFound         Status = statusErrorBit | 14
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusLoadError:
		return "load error"
	case StatusInvalidParameter:
		return "invalid parameter"
	case StatusUnsupported:
		return "unsupported"
	case StatusBufferTooSmall:
		return "buffer too small"
	case StatusDeviceError:
		return "device error"
	case StatusOutOfResources:
		return "out of resources"
	case StatusNotFound:
		return "not found"
	default:
		return fmt.Sprintf("status %#x", uint64(s))
	}
}

// Err converts the status word into an error, or nil for success. The
// original word stays recoverable through GetStatus.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return &statusError{status: s}
}

type statusError struct {
	status Status
}

func (e *statusError) Error() string {
	return fmt.Sprintf("firmware reported %s", e.status)
}

// GetStatus extracts the firmware status word carried by err, if any.
func GetStatus(err error) (Status, bool) {
	var se *statusError
	if errors.As(err, &se) {
		return se.status, true
	}
	return StatusSuccess, false
}
