package uki

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinyboot/handover/internal/testutil"
)

func writeUKI(t *testing.T, sections map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.efi")
	if err := testutil.WriteUKI(path, sections); err != nil {
		t.Fatalf("writing test UKI: %v", err)
	}
	return path
}

func TestOpen(t *testing.T) {
	path := writeUKI(t, map[string][]byte{
		".linux":   []byte("kernel bytes"),
		".initrd":  []byte("initrd bytes"),
		".cmdline": []byte("console=ttyS0"),
	})

	assets, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer assets.Close()

	kernel, err := io.ReadAll(assets.Kernel)
	if err != nil {
		t.Fatalf("reading kernel: %v", err)
	}
	if string(kernel) != "kernel bytes" {
		t.Errorf("kernel = %q, want %q", kernel, "kernel bytes")
	}
	initrd, err := io.ReadAll(assets.Initrd)
	if err != nil {
		t.Fatalf("reading initrd: %v", err)
	}
	if string(initrd) != "initrd bytes" {
		t.Errorf("initrd = %q, want %q", initrd, "initrd bytes")
	}
	if assets.Cmdline != "console=ttyS0" {
		t.Errorf("Cmdline = %q, want console=ttyS0", assets.Cmdline)
	}
}

func TestOpenNoInitrd(t *testing.T) {
	path := writeUKI(t, map[string][]byte{
		".linux": []byte("kernel bytes"),
	})

	assets, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer assets.Close()

	if assets.Initrd != nil {
		t.Error("Initrd is set for an image without an .initrd section")
	}
	if assets.Cmdline != "" {
		t.Errorf("Cmdline = %q, want empty", assets.Cmdline)
	}
}

func TestOpenNoKernel(t *testing.T) {
	path := writeUKI(t, map[string][]byte{
		".cmdline": []byte("console=ttyS0"),
	})
	if _, err := Open(path); err == nil {
		t.Error("Open() accepted an image without a .linux section")
	}
}

func TestSetCmdline(t *testing.T) {
	original := "console=ttyS0 original=true" + strings.Repeat("\x00", 100)
	path := writeUKI(t, map[string][]byte{
		".linux":   []byte("kernel bytes"),
		".cmdline": []byte(original),
	})

	const patched = "console=ttyS0 patched=true"
	if err := SetCmdline(path, patched); err != nil {
		t.Fatalf("SetCmdline() error: %v", err)
	}

	assets, err := Open(path)
	if err != nil {
		t.Fatalf("Open() after patch: %v", err)
	}
	defer assets.Close()
	if assets.Cmdline != patched {
		t.Errorf("Cmdline = %q, want %q", assets.Cmdline, patched)
	}
}

func TestSetCmdlineTooLong(t *testing.T) {
	path := writeUKI(t, map[string][]byte{
		".linux":   []byte("kernel bytes"),
		".cmdline": []byte("short"),
	})
	if err := SetCmdline(path, strings.Repeat("x", 4096)); err == nil {
		t.Error("SetCmdline() accepted a command line larger than the section")
	}
}
