//go:build linux

// Package kexec stages a kernel from a hosted Linux environment through
// kexec_file_load, the same handover contract as the firmware path but
// with the running kernel acting as the loader.
package kexec

import (
	"io"
	"os"
	"strings"
	"syscall"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// kexec_file_load flag to skip signature verification.
const fileLoadUnsafe = 0x00000001

// MemfdFile creates an anonymous in-memory file and fills it from r,
// seeked back to the start. Useful when the kernel or initrd comes from a
// stream rather than a file on disk.
func MemfdFile(name string, r io.Reader) (*os.File, error) {
	const memfdCloexec = 0x0001

	nameBytes := []byte(name + "\x00")
	fd, _, errno := unix.Syscall(sysMemfdCreate, uintptr(unsafe.Pointer(&nameBytes[0])), memfdCloexec, 0)
	if errno != 0 {
		return nil, errors.Newf("memfd_create: %v", errno)
	}
	file := os.NewFile(fd, name)

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "filling memfd")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "rewinding memfd")
	}
	return file, nil
}

// Load stages kernel and initrd for the next kexec reboot. initrd may be
// nil. On EPERM the load is retried without signature verification, which
// works only outside kernel lockdown.
func Load(kernel, initrd *os.File, cmdline string) error {
	initrdFD := -1
	if initrd != nil {
		initrdFD = int(initrd.Fd())
	}

	var cmdlinePtr uintptr
	cmdlineBytes := []byte(cmdline)
	if len(cmdlineBytes) > 0 {
		cmdlineBytes = append(cmdlineBytes, 0)
		cmdlinePtr = uintptr(unsafe.Pointer(&cmdlineBytes[0]))
	}

	load := func(flags uintptr) syscall.Errno {
		_, _, errno := unix.Syscall6(
			sysKexecFileLoad,
			kernel.Fd(),
			uintptr(initrdFD),
			uintptr(len(cmdlineBytes)),
			cmdlinePtr,
			flags,
			0,
		)
		return errno
	}

	errno := load(0)
	if errno == unix.EPERM {
		errno = load(fileLoadUnsafe)
	}
	if errno != 0 {
		return translateErrno(errno)
	}
	return nil
}

// Reboot jumps into the staged kernel. On success it does not return.
func Reboot() error {
	const (
		rebootMagic1   = 0xfee1dead
		rebootMagic2   = 672274793
		rebootCmdKexec = 0x45584543
	)
	_, _, errno := unix.Syscall6(sysReboot, rebootMagic1, rebootMagic2, rebootCmdKexec, 0, 0, 0)
	if errno != 0 {
		return errors.Newf("reboot into staged kernel: %v", errno)
	}
	return nil
}

func translateErrno(errno syscall.Errno) error {
	switch errno {
	case unix.ENOSYS:
		return errors.New("kexec support is disabled in the kernel (CONFIG_KEXEC not enabled)")
	case unix.EPERM:
		if data, err := os.ReadFile("/proc/sys/kernel/kexec_load_disabled"); err == nil &&
			strings.TrimSpace(string(data)) == "1" {
			return errors.New("kexec is disabled via sysctl kernel.kexec_load_disabled")
		}
		return errors.New("kexec blocked: permission denied, likely lockdown or a signature requirement")
	case unix.EBUSY:
		return errors.New("kexec is busy, another load may be in progress")
	case unix.EKEYREJECTED:
		return errors.New("kernel signature verification failed")
	case unix.ENOTSUP:
		return errors.New("kexec_file_load not supported (missing CONFIG_KEXEC_FILE)")
	default:
		return errors.Newf("kexec_file_load: %v (errno %d)", errno, errno)
	}
}
