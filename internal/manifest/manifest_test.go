package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `
kernel: /boot/vmlinuz
initrd: /boot/initrd.img
cmdline: console=ttyS0 root=/dev/vda1
initrd-addr: 0x300000
initrd-size: 0x8000
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Kernel != "/boot/vmlinuz" {
		t.Errorf("Kernel = %q, want /boot/vmlinuz", m.Kernel)
	}
	if m.Cmdline != "console=ttyS0 root=/dev/vda1" {
		t.Errorf("Cmdline = %q", m.Cmdline)
	}
	if m.InitrdAddr != 0x300000 || m.InitrdSize != 0x8000 {
		t.Errorf("initrd bounds = %#x+%#x, want 0x300000+0x8000", m.InitrdAddr, m.InitrdSize)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := writeManifest(t, "cmdline: quiet\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted a manifest with no kernel and no dtb")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() accepted a missing file")
	}
}
