package boot

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/tinyboot/handover/internal/testutil"
)

func TestParseSetupHeader(t *testing.T) {
	hdr, err := ParseSetupHeader(testutil.BzImage(testutil.WithSetupSects(8)))
	if err != nil {
		t.Fatalf("ParseSetupHeader() error: %v", err)
	}
	if hdr.SetupSects != 8 {
		t.Errorf("SetupSects = %d, want 8", hdr.SetupSects)
	}
	if hdr.Version != 0x020b {
		t.Errorf("Version = %#x, want 0x20b", hdr.Version)
	}
	if hdr.HandoverOffset != 0x190 {
		t.Errorf("HandoverOffset = %#x, want 0x190", hdr.HandoverOffset)
	}
	if got, want := len(hdr.raw), 0x26c-setupHeaderOffset; got != want {
		t.Errorf("raw header is %d bytes, want %d", got, want)
	}
}

func TestParseSetupHeaderRejects(t *testing.T) {
	tests := []struct {
		name string
		img  []byte
	}{
		{"truncated", testutil.BzImage()[:0x200]},
		{"bad boot flag", testutil.BzImage(testutil.WithBootFlag(0x55aa))},
		{"bad magic", testutil.BzImage(testutil.WithHeaderMagic("HdrX"))},
		{"old protocol", testutil.BzImage(testutil.WithVersion(0x020a))},
		{"not relocatable", testutil.BzImage(testutil.WithRelocatable(0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSetupHeader(tt.img); !errors.Is(err, ErrInvalidImage) {
				t.Errorf("ParseSetupHeader() error = %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestSetupSectorsDefault(t *testing.T) {
	hdr, err := ParseSetupHeader(testutil.BzImage(testutil.WithSetupSects(0)))
	if err != nil {
		t.Fatalf("ParseSetupHeader() error: %v", err)
	}
	if got := hdr.SetupSectors(); got != 4 {
		t.Errorf("SetupSectors() = %d, want the protocol default 4", got)
	}
}

func TestEntryContinuation(t *testing.T) {
	hdr, err := ParseSetupHeader(testutil.BzImage(testutil.WithSetupSects(8)))
	if err != nil {
		t.Fatalf("ParseSetupHeader() error: %v", err)
	}
	const base = 0x200000
	if got, want := hdr.EntryContinuation(base), uint64(base+9*512); got != want {
		t.Errorf("EntryContinuation(%#x) = %#x, want %#x", base, got, want)
	}
}
