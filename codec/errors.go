package codec

import (
	"errors"
	"fmt"
)

// ErrFormat is the root of every decoding failure caused by malformed or truncated input. A
// connection that produced one can no longer be trusted.
var ErrFormat = errors.New("codec: malformed data")

var ErrUnexpectedEnd = fmt.Errorf("%w: unexpected end of input", ErrFormat)
var ErrVarIntTooBig = fmt.Errorf("%w: varint is too big", ErrFormat)
var ErrTrailingBytes = fmt.Errorf("%w: trailing bytes", ErrFormat)

// Errorf builds an error wrapping ErrFormat.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}
