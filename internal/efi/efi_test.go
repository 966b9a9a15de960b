package efi

import (
	"testing"

	"github.com/google/uuid"
)

func TestGUIDBytesMixedEndian(t *testing.T) {
	// The DTB table GUID b1b621d5-f19c-41a5-830b-d9152c69aae0 lives in
	// firmware memory with the first three fields byte-swapped.
	got := guidBytes(DeviceTreeTableGUID)
	want := [16]byte{
		0xd5, 0x21, 0xb6, 0xb1,
		0x9c, 0xf1,
		0xa5, 0x41,
		0x83, 0x0b, 0xd9, 0x15, 0x2c, 0x69, 0xaa, 0xe0,
	}
	if got != want {
		t.Errorf("guidBytes = %x, want %x", got, want)
	}
}

func TestGUIDBytesRoundTripDistinct(t *testing.T) {
	a := guidBytes(DeviceTreeTableGUID)
	b := guidBytes(ACPITableGUID)
	if a == b {
		t.Error("distinct GUIDs encoded to the same bytes")
	}
	if guidBytes(uuid.UUID{}) != [16]byte{} {
		t.Error("zero GUID must encode to zero bytes")
	}
}

func TestStatusErr(t *testing.T) {
	if err := StatusSuccess.Err(); err != nil {
		t.Fatalf("StatusSuccess.Err() = %v, want nil", err)
	}
	err := StatusOutOfResources.Err()
	if err == nil {
		t.Fatal("StatusOutOfResources.Err() = nil, want error")
	}
	st, ok := GetStatus(err)
	if !ok || st != StatusOutOfResources {
		t.Errorf("GetStatus = (%v, %v), want (out of resources, true)", st, ok)
	}
}

func TestStatusString(t *testing.T) {
	if s := StatusNotFound.String(); s != "not found" {
		t.Errorf("StatusNotFound.String() = %q", s)
	}
	if s := Status(statusErrorBit | 42).String(); s == "" {
		t.Error("unknown status must still format")
	}
}

func TestDecodeLoadOptions(t *testing.T) {
	// "console=ttyS0" as UTF-16LE with terminator and trailing junk.
	text := "console=ttyS0"
	raw := make([]byte, 0, len(text)*2+4)
	for _, r := range text {
		raw = append(raw, byte(r), 0)
	}
	raw = append(raw, 0, 0, 0xff, 0xfe)

	got, err := DecodeLoadOptions(raw)
	if err != nil {
		t.Fatalf("DecodeLoadOptions: %v", err)
	}
	if string(got) != text {
		t.Errorf("decoded = %q, want %q", got, text)
	}
}

func TestDecodeLoadOptionsZeroStraddlingUnits(t *testing.T) {
	// "AĀB": the pair 41 00 / 00 01 puts two zero bytes at an odd offset,
	// which is not a NUL code unit and must not end the string.
	raw := []byte{0x41, 0x00, 0x00, 0x01, 0x42, 0x00, 0x00, 0x00}
	got, err := DecodeLoadOptions(raw)
	if err != nil {
		t.Fatalf("DecodeLoadOptions: %v", err)
	}
	if string(got) != "AĀB" {
		t.Errorf("decoded = %q, want %q", got, "AĀB")
	}
}

func TestDecodeLoadOptionsNoTerminator(t *testing.T) {
	raw := []byte{'o', 0, 'k', 0}
	got, err := DecodeLoadOptions(raw)
	if err != nil {
		t.Fatalf("DecodeLoadOptions: %v", err)
	}
	if string(got) != "ok" {
		t.Errorf("decoded = %q, want %q", got, "ok")
	}
}

func TestDecodeLoadOptionsOddLength(t *testing.T) {
	if _, err := DecodeLoadOptions([]byte{0x41}); err == nil {
		t.Error("odd-length load options must be rejected")
	}
}
