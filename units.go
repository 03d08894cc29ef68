package chunkstore

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a byte size such as "64MB", "1.5 gb" or "512". Units are
// case-insensitive and decimal (kb = 1000 bytes); binary units such as "KiB"
// are accepted as well.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty size", ErrInvalidConfig)
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: size %q: %v", ErrInvalidConfig, s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: size %q overflows", ErrInvalidConfig, s)
	}
	return int64(n), nil
}

// FormatSize renders a byte count the way ParseSize reads it.
func FormatSize(n int64) string {
	if n < 0 {
		return fmt.Sprintf("%d B", n)
	}
	return humanize.Bytes(uint64(n))
}
