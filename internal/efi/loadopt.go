package efi

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/unicode"
)

//nolint:gochecknoglobals
var loadOptionEncoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeLoadOptions converts the UTF-16LE load options the firmware hands an
// application into the 8-bit command-line buffer the kernel boot protocol
// consumes. Decoding stops at the first NUL code point, so the result is
// NUL-free. The returned length is explicit; no terminator is appended here.
func DecodeLoadOptions(opts []byte) ([]byte, error) {
	if len(opts)%2 != 0 {
		return nil, errors.Newf("load options have odd length %d", len(opts))
	}
	// Only even offsets hold code units; a zero pair straddling two units
	// (a trailing 0x00 followed by a U+xx00 low byte) is not a terminator.
	for i := 0; i+1 < len(opts); i += 2 {
		if opts[i] == 0 && opts[i+1] == 0 {
			opts = opts[:i]
			break
		}
	}
	decoded, err := loadOptionEncoding.NewDecoder().Bytes(opts)
	if err != nil {
		return nil, errors.Wrap(err, "decoding UTF-16 load options")
	}
	return decoded, nil
}
