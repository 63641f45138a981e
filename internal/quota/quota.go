// Package quota converts between human-entered quota values and the raw
// integers the QMS API stores.
package quota

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrInvalid is returned for values that don't match the quota grammar.
var ErrInvalid = errors.New("invalid quota value")

var pattern = regexp.MustCompile(`^(\d+(\.\d+)?)\s?([KkMmGgTt])?$`)

// Both cases use binary multiples.
var multipliers = map[string]float64{
	"":  1,
	"k": 1 << 10,
	"m": 1 << 20,
	"g": 1 << 30,
	"t": 1 << 40,
}

// Parse converts a magnitude with an optional unit letter, such as "2K" or
// "1.5 M", to a raw integer.
func Parse(s string) (int64, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}

	magnitude, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}

	value := math.Floor(magnitude * multipliers[strings.ToLower(m[3])])
	if value >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalid, s)
	}
	return int64(value), nil
}

// Format renders a quota or usage value for display. Byte-valued resource
// types are shown with binary prefixes.
func Format(value float64, unit string) string {
	if strings.EqualFold(unit, "bytes") && value >= 0 && value < math.MaxInt64 {
		return humanize.IBytes(uint64(value))
	}
	if value == math.Trunc(value) && math.Abs(value) < 1e15 {
		s := humanize.Comma(int64(value))
		if unit != "" {
			s += " " + unit
		}
		return s
	}
	s := humanize.FormatFloat("#,###.##", value)
	if unit != "" {
		s += " " + unit
	}
	return s
}
