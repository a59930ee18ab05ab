package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var multipliers = map[string]int64{
	"":  1,
	"b": 1,
	"k": 1 << 10,
	"m": 1 << 20,
	"g": 1 << 30,
	"t": 1 << 40,
}

// dd's single-letter units. They are case-sensitive: "2b" is two 512-byte
// blocks while "100B" is a hundred bytes.
var ddUnits = map[string]int64{
	"c": 1,
	"w": 2,
	"b": 512,
}

// ParseSize parses a human-readable size string into bytes.
// Supports: 100, 100B, 4K, 4KB, 4KiB, 128M, 2G, 1T (case-insensitive, powers
// of 1024) and dd's c, w and b (1, 2 and 512 bytes). Fractions are accepted
// when they come to a whole number of bytes ("1.5G").
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	numStr, suffix := s, ""
	if i >= 0 {
		numStr, suffix = s[:i], strings.TrimSpace(s[i:])
	}

	multiplier, ok := ddUnits[suffix]
	if !ok {
		suffix = strings.ToLower(suffix)
		if len(suffix) > 1 {
			suffix = strings.TrimSuffix(strings.TrimSuffix(suffix, "b"), "i")
		}
		if multiplier, ok = multipliers[suffix]; !ok {
			return 0, fmt.Errorf("invalid size %q: unknown suffix", s)
		}
	}
	if numStr == "" {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	if n, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		if n > math.MaxInt64/multiplier {
			return 0, fmt.Errorf("size %q overflows", s)
		}
		return n * multiplier, nil
	}

	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	v := f * float64(multiplier)
	if v >= math.MaxInt64 {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("invalid size %q: not a whole number of bytes", s)
	}
	return int64(v), nil
}

// ParseCount parses a block count for skip, seek and count. It takes the
// same suffixes as ParseSize but no fractions.
func ParseCount(s string) (int64, error) {
	if strings.Contains(s, ".") {
		return 0, fmt.Errorf("invalid count %q: must be a whole number", strings.TrimSpace(s))
	}
	return ParseSize(s)
}
