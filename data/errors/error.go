package errors

import (
	"fmt"
)

// newError prefixes the message and wraps err so that sentinel checks still match.
func newError(err error, format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if err != nil {
		return fmt.Errorf("carupload: %s: %w", text, err)
	}

	return fmt.Errorf("carupload: %s", text)
}
