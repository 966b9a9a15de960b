package cli

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
)

// MultiFlag allows a flag to be specified multiple times.
type MultiFlag []string

func (m *MultiFlag) String() string     { return strings.Join(*m, ",") }
func (m *MultiFlag) Set(v string) error { *m = append(*m, v); return nil }

//nolint:gochecknoglobals
var (
	// YesFlag enables automatic yes to prompts.
	YesFlag bool

	reader = bufio.NewReader(os.Stdin)
)

// Must logs a fatal error if err is not nil.
func Must(msg string, err error) {
	if err != nil {
		log.Fatalf("%s: %v", msg, err)
	}
}

// AskYesNo prompts for a yes/no answer with a default.
//
//nolint:forbidigo
func AskYesNo(msg string, def bool) bool {
	if YesFlag {
		fmt.Printf("%s [%s]: %v\n", msg, map[bool]string{true: "yes", false: "no"}[def], def)
		return def
	}
	defStr := "yes"
	if !def {
		defStr = "no"
	}
	for {
		fmt.Printf("%s [%s]: ", msg, defStr)
		in, _ := reader.ReadString('\n')
		in = strings.TrimSpace(strings.ToLower(in))
		if in == "" {
			return def
		}
		if in == "y" || in == "yes" {
			return true
		}
		if in == "n" || in == "no" {
			return false
		}
		fmt.Println("Please answer 'yes' or 'no'.")
	}
}
