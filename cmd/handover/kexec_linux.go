//go:build linux

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/tinyboot/handover/internal/cli"
	"github.com/tinyboot/handover/internal/kexec"
	"github.com/tinyboot/handover/internal/uki"
)

//nolint:forbidigo
func runKexec() error {
	if kernelFlag == "" && ukiFlag == "" {
		return errors.New("kexec mode needs -kernel or -uki")
	}

	var (
		kernel, initrd *os.File
		err            error
	)
	if ukiFlag != "" {
		kernel, initrd, err = ukiFiles(ukiFlag)
		if err != nil {
			return err
		}
	} else {
		if kernel, err = os.Open(kernelFlag); err != nil {
			return err
		}
		if initrdFlag != "" {
			if initrd, err = os.Open(initrdFlag); err != nil {
				kernel.Close()
				return err
			}
		}
	}
	defer kernel.Close()
	if initrd != nil {
		defer initrd.Close()
	}

	fmt.Println("\nBoot Summary:")
	fmt.Printf("  Kernel:  %s\n", orNone(kernelFlag))
	fmt.Printf("  UKI:     %s\n", orNone(ukiFlag))
	fmt.Printf("  Initrd:  %v\n", initrd != nil)
	fmt.Printf("  Cmdline: %s\n", orNone(cmdlineFlag))
	fmt.Println()
	if !cli.AskYesNo("Continue with boot?", true) {
		return errors.New("aborted by user")
	}

	log.Print("staging kernel with kexec_file_load")
	if err := kexec.Load(kernel, initrd, cmdlineFlag); err != nil {
		return err
	}
	log.Print("kernel staged, rebooting")
	return kexec.Reboot()
}

// ukiFiles unpacks a unified kernel image into memfds kexec_file_load can
// take. The embedded command line is adopted unless one was given.
func ukiFiles(path string) (kernel, initrd *os.File, err error) {
	assets, err := uki.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer assets.Close()

	if cmdlineFlag == "" {
		cmdlineFlag = assets.Cmdline
	}
	if kernel, err = kexec.MemfdFile("kernel", assets.Kernel); err != nil {
		return nil, nil, err
	}
	if assets.Initrd != nil {
		if initrd, err = kexec.MemfdFile("initramfs", assets.Initrd); err != nil {
			kernel.Close()
			return nil, nil, err
		}
	}
	return kernel, initrd, nil
}
