// Package bytesize parses and formats human-readable byte quantities such as
// "10MiB" or "512KB" so limits can be written naturally in config files.
package bytesize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes.
type ByteSize uint64

// Decimal (×1000) and binary (×1024) units.
const (
	B  ByteSize = 1
	KB ByteSize = 1000 * B
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB

	KiB ByteSize = 1024 * B
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
)

var units = map[string]ByteSize{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"ki":  KiB,
	"kib": KiB,
	"mi":  MiB,
	"mib": MiB,
	"gi":  GiB,
	"gib": GiB,
}

// Parse converts strings like "10MiB", "1.5GB" or "4096" to a ByteSize.
func Parse(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	num, unit := s, ""
	if split >= 0 {
		num, unit = s[:split], strings.ToLower(strings.TrimSpace(s[split:]))
	}
	if num == "" {
		return 0, fmt.Errorf("invalid byte size %q: missing number", s)
	}

	mult, ok := units[unit]
	if !ok {
		return 0, fmt.Errorf("invalid byte size %q: unknown unit %q", s, unit)
	}

	if !strings.Contains(num, ".") {
		n, err := strconv.ParseUint(num, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
		}
		if n > math.MaxUint64/uint64(mult) {
			return 0, fmt.Errorf("invalid byte size %q: overflows uint64", s)
		}
		return ByteSize(n) * mult, nil
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(f * float64(mult)), nil
}

// MustParse is Parse for constants known to be valid. It panics on error.
func MustParse(s string) ByteSize {
	b, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return b
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// MarshalText implements encoding.TextMarshaler so sizes round-trip through
// YAML config files in their readable form.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String returns the largest binary unit that represents b exactly, falling
// back to a two-decimal approximation.
func (b ByteSize) String() string {
	for _, u := range []struct {
		size ByteSize
		name string
	}{{GiB, "GiB"}, {MiB, "MiB"}, {KiB, "KiB"}} {
		if b >= u.size {
			if b%u.size == 0 {
				return fmt.Sprintf("%d%s", b/u.size, u.name)
			}
			return fmt.Sprintf("%.2f%s", float64(b)/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%dB", uint64(b))
}

// Int64 returns b as an int64, saturating at math.MaxInt64.
func (b ByteSize) Int64() int64 {
	if uint64(b) > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(b)
}
