package boot

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/tinyboot/handover/internal/testutil"
)

func TestParseARM64Header(t *testing.T) {
	hdr, err := ParseARM64Header(testutil.ARM64Image(0x10000))
	if err != nil {
		t.Fatalf("ParseARM64Header() error: %v", err)
	}
	if hdr.PEOffset != 64 {
		t.Errorf("PEOffset = %d, want 64", hdr.PEOffset)
	}
	if hdr.TextOffset != 0x80000 {
		t.Errorf("TextOffset = %#x, want 0x80000", hdr.TextOffset)
	}
}

func TestParseARM64HeaderRejects(t *testing.T) {
	tests := []struct {
		name string
		img  []byte
	}{
		{"truncated", testutil.ARM64Image(0)[:32]},
		{"bad magic", testutil.ARM64Image(0, testutil.WithARM64Magic(0x644d5242))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseARM64Header(tt.img); !errors.Is(err, ErrInvalidImage) {
				t.Errorf("ParseARM64Header() error = %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestParsePEEntry(t *testing.T) {
	img := testutil.ARM64Image(0x12345)
	entry, err := ParsePEEntry(img[64:])
	if err != nil {
		t.Fatalf("ParsePEEntry() error: %v", err)
	}
	if entry != 0x12345 {
		t.Errorf("ParsePEEntry() = %#x, want 0x12345", entry)
	}
}

func TestParsePEEntryRejectsSignature(t *testing.T) {
	img := testutil.ARM64Image(0, testutil.WithPESignature("MZ\x00\x00"))
	if _, err := ParsePEEntry(img[64:]); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("ParsePEEntry() error = %v, want ErrInvalidImage", err)
	}
}

func TestARM64EntryPoint(t *testing.T) {
	const base = 0x100000
	fw := testutil.NewFirmware(0, 2<<20)
	if err := fw.WriteAt(testutil.ARM64Image(0x4000), base); err != nil {
		t.Fatalf("placing image: %v", err)
	}

	ep, err := ARM64EntryPoint(fw, base)
	if err != nil {
		t.Fatalf("ARM64EntryPoint() error: %v", err)
	}
	if want := uintptr(base + 0x4000); ep.Addr != want {
		t.Errorf("entry = %#x, want %#x", ep.Addr, want)
	}
}

func TestExecLinuxARM64InvalidImage(t *testing.T) {
	const base = 0x100000
	fw := testutil.NewFirmware(0, 2<<20)
	img := testutil.ARM64Image(0, testutil.WithARM64Magic(0))
	if err := fw.WriteAt(img, base); err != nil {
		t.Fatalf("placing image: %v", err)
	}
	if err := ExecLinuxARM64(fw, 1, base, nil, 0, 0); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("ExecLinuxARM64() error = %v, want ErrInvalidImage", err)
	}
}
