//go:build !linux

package main

import "github.com/cockroachdb/errors"

func runKexec() error {
	return errors.New("kexec mode is only available on linux")
}
