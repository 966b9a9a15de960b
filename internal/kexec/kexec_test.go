//go:build linux

package kexec

import (
	"bytes"
	"io"
	"testing"
)

func TestMemfdFile(t *testing.T) {
	want := []byte("vmlinuz bytes")
	file, err := MemfdFile("kernel", bytes.NewReader(want))
	if err != nil {
		t.Fatalf("MemfdFile() error: %v", err)
	}
	defer file.Close()

	got, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("reading memfd back: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("memfd contents = %q, want %q", got, want)
	}
}

func TestMemfdFileEmpty(t *testing.T) {
	file, err := MemfdFile("empty", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("MemfdFile() error: %v", err)
	}
	defer file.Close()

	got, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("reading memfd back: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("memfd has %d bytes, want empty", len(got))
	}
}
