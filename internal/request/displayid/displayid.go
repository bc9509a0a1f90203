// Package displayid allocates human-readable sequential identifiers such as
// REQ-000001 and INV-00000001.
package displayid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	RequestPrefix = "REQ-"
	RequestWidth  = 6

	InvoicePrefix = "INV-"
	InvoiceWidth  = 8

	DefaultMaxAttempts = 5
)

var (
	// ErrExhausted matches every *ExhaustedError.
	ErrExhausted = errors.New("display id allocation exhausted")
	// ErrMalformed is returned by Parse for values that do not carry the prefix
	// followed by digits.
	ErrMalformed = errors.New("malformed display id")
	// ErrOverflow is returned when the next suffix no longer fits the width.
	ErrOverflow = errors.New("display id suffix overflows width")
)

// ExhaustedError is the fatal outcome of too many consecutive collisions.
type ExhaustedError struct {
	Prefix   string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("could not allocate %s display id after %d attempts", strings.TrimSuffix(e.Prefix, "-"), e.Attempts)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Format renders n zero-padded to width after prefix.
func Format(prefix string, width int, n int64) (string, error) {
	s := strconv.FormatInt(n, 10)
	if n < 1 || len(s) > width {
		return "", fmt.Errorf("%w: %d does not fit %d digits", ErrOverflow, n, width)
	}
	return prefix + strings.Repeat("0", width-len(s)) + s, nil
}

// Parse extracts the numeric suffix of id. An empty id parses as 0 so callers
// can feed "no existing record" straight through.
func Parse(prefix, id string) (int64, error) {
	if id == "" {
		return 0, nil
	}
	suffix, ok := strings.CutPrefix(id, prefix)
	if !ok || suffix == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, id)
		}
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	return n, nil
}
