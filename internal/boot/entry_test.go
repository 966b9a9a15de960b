package boot

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/purego"
)

func TestEntryPointCallZeroAddr(t *testing.T) {
	var ep EntryPoint
	if err := ep.Call(0, 0, 0); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Call() on zero entry point error = %v, want ErrInvalidImage", err)
	}
}

// A returning entry point is a failed handover: control came back.
func TestEntryPointCallReturns(t *testing.T) {
	var gotImage, gotTable, gotArg uintptr
	cb := purego.NewCallback(func(image, table, arg uintptr) uintptr {
		gotImage, gotTable, gotArg = image, table, arg
		return 0
	})

	ep := EntryPoint{Addr: cb}
	err := ep.Call(7, 11, 13)
	if !errors.Is(err, ErrHandoverFailed) {
		t.Fatalf("Call() error = %v, want ErrHandoverFailed", err)
	}
	if gotImage != 7 || gotTable != 11 || gotArg != 13 {
		t.Errorf("entry received (%d, %d, %d), want (7, 11, 13)", gotImage, gotTable, gotArg)
	}
}
