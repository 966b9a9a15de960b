// Command handover inspects Linux boot images, annotates device trees
// with initrd bounds, and stages kernels for a kexec reboot.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tinyboot/handover/internal/boot"
	"github.com/tinyboot/handover/internal/cli"
	"github.com/tinyboot/handover/internal/fdt"
	"github.com/tinyboot/handover/internal/manifest"
	"github.com/tinyboot/handover/internal/uki"
)

var (
	modeFlag     string
	kernelFlag   string
	initrdFlag   string
	ukiFlag      string
	dtbFlag      string
	outFlag      string
	cmdlineFlag  string
	manifestFlag string
	initrdAddr   uint64
	initrdSize   uint64
)

func init() {
	flag.StringVar(&modeFlag, "mode", "", "mode: inspect, annotate or kexec")
	flag.StringVar(&modeFlag, "m", "", "mode: inspect, annotate or kexec (shorthand)")
	flag.StringVar(&kernelFlag, "kernel", "", "kernel image path")
	flag.StringVar(&initrdFlag, "initrd", "", "initrd path (kexec mode)")
	flag.StringVar(&ukiFlag, "uki", "", "unified kernel image path")
	flag.StringVar(&dtbFlag, "dtb", "", "device tree blob path (annotate mode)")
	flag.StringVar(&outFlag, "out", "", "annotated dtb output path (default: in place)")
	flag.StringVar(&cmdlineFlag, "cmdline", "", "kernel command line")
	flag.StringVar(&manifestFlag, "manifest", "", "YAML boot manifest")
	flag.Uint64Var(&initrdAddr, "initrd-addr", 0, "loaded initrd base address (annotate mode)")
	flag.Uint64Var(&initrdSize, "initrd-size", 0, "loaded initrd size (annotate mode)")
	flag.BoolVar(&cli.YesFlag, "yes", false, "automatic yes to prompts")
}

func main() {
	var extra cli.MultiFlag
	flag.Var(&extra, "extra-kernel-arg", "extra kernel arg (repeatable)")
	flag.Parse()

	if manifestFlag != "" {
		m, err := manifest.Load(manifestFlag)
		cli.Must("manifest", err)
		applyManifest(m)
	}
	if len(extra) > 0 {
		cmdlineFlag = strings.TrimSpace(cmdlineFlag + " " + strings.Join(extra, " "))
	}

	switch modeFlag {
	case "inspect":
		cli.Must("inspect", runInspect())
	case "annotate":
		cli.Must("annotate", runAnnotate())
	case "kexec":
		cli.Must("kexec", runKexec())
	default:
		log.Fatalf("invalid mode: %q (must be 'inspect', 'annotate' or 'kexec')", modeFlag)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// Flags given on the command line win over the manifest.
func applyManifest(m *manifest.Manifest) {
	if kernelFlag == "" {
		kernelFlag = m.Kernel
	}
	if initrdFlag == "" {
		initrdFlag = m.Initrd
	}
	if ukiFlag == "" {
		ukiFlag = m.UKI
	}
	if dtbFlag == "" {
		dtbFlag = m.DTB
	}
	if cmdlineFlag == "" {
		cmdlineFlag = m.Cmdline
	}
	if initrdAddr == 0 {
		initrdAddr = m.InitrdAddr
	}
	if initrdSize == 0 {
		initrdSize = m.InitrdSize
	}
}

//nolint:forbidigo
func runInspect() error {
	if ukiFlag != "" {
		return inspectUKI(ukiFlag)
	}
	if kernelFlag == "" {
		return errors.New("inspect mode needs -kernel or -uki")
	}
	img, err := os.ReadFile(kernelFlag)
	if err != nil {
		return err
	}

	if hdr, err := boot.ParseSetupHeader(img); err == nil {
		fmt.Printf("%s: x86 bzImage\n", kernelFlag)
		fmt.Printf("  boot protocol:   %d.%02d\n", hdr.Version>>8, hdr.Version&0xff)
		fmt.Printf("  setup sectors:   %d\n", hdr.SetupSectors())
		fmt.Printf("  relocatable:     %v\n", hdr.RelocatableKernel != 0)
		fmt.Printf("  handover offset: %#x\n", hdr.HandoverOffset)
		return nil
	}

	hdr, err := boot.ParseARM64Header(img)
	if err != nil {
		return errors.Wrap(err, "not a recognized x86 or arm64 kernel image")
	}
	fmt.Printf("%s: arm64 Image\n", kernelFlag)
	fmt.Printf("  text offset: %#x\n", hdr.TextOffset)
	fmt.Printf("  image size:  %#x\n", hdr.ImageSize)
	if int(hdr.PEOffset) < len(img) {
		if entry, err := boot.ParsePEEntry(img[hdr.PEOffset:]); err == nil {
			fmt.Printf("  entry:       base+%#x\n", entry)
		}
	}
	return nil
}

//nolint:forbidigo
func inspectUKI(path string) error {
	assets, err := uki.Open(path)
	if err != nil {
		return err
	}
	defer assets.Close()

	fmt.Printf("%s: unified kernel image\n", path)
	fmt.Printf("  initrd:  %v\n", assets.Initrd != nil)
	fmt.Printf("  cmdline: %s\n", orNone(assets.Cmdline))
	return nil
}

func runAnnotate() error {
	// With a UKI the annotation target is its embedded command line.
	if ukiFlag != "" {
		if cmdlineFlag == "" {
			return errors.New("annotating a UKI needs -cmdline")
		}
		return uki.SetCmdline(ukiFlag, cmdlineFlag)
	}
	if dtbFlag == "" {
		return errors.New("annotate mode needs -dtb or -uki")
	}
	if initrdSize == 0 {
		return errors.New("annotate mode needs -initrd-addr and -initrd-size")
	}
	data, err := os.ReadFile(dtbFlag)
	if err != nil {
		return err
	}

	// Room to grow: the file copy is not size-constrained the way a
	// firmware blob is.
	blob, err := fdt.Open(append(data, make([]byte, 0x1000)...))
	if err != nil {
		return err
	}
	node, err := blob.FindNode("chosen")
	if err != nil {
		if node, err = blob.AddNode("chosen"); err != nil {
			return err
		}
	}
	if err := blob.SetPropU64(node, "linux,initrd-start", initrdAddr); err != nil {
		return err
	}
	if err := blob.SetPropU64(node, "linux,initrd-end", initrdAddr+initrdSize); err != nil {
		return err
	}

	out := outFlag
	if out == "" {
		out = dtbFlag
	}
	return os.WriteFile(out, blob.Bytes(), 0o644)
}
