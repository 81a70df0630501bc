package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Time is a simulation instant or duration, counted in ticks.
// Infinity marks a passive model: one that never schedules itself.
type Time int64

// Infinity is the "never" sentinel. It compares greater than every finite Time.
const Infinity Time = math.MaxInt64

// IsInf reports whether t is the infinite sentinel.
func (t Time) IsInf() bool {
	return t == Infinity
}

// Add returns t + d, saturating at Infinity.
func (t Time) Add(d Time) Time {
	if t == Infinity || d == Infinity {
		return Infinity
	}
	if d > 0 && t > Infinity-d {
		return Infinity
	}
	return t + d
}

// Sub returns the elapsed duration t - u. An infinite t yields Infinity.
func (t Time) Sub(u Time) Time {
	if t == Infinity {
		return Infinity
	}
	return t - u
}

// Min returns the earlier of a and b.
func Min(a, b Time) Time {
	if a < b {
		return a
	}
	return b
}

func (t Time) String() string {
	if t == Infinity {
		return "inf"
	}
	return strconv.FormatInt(int64(t), 10)
}

// ParseTime parses an integer tick count or "inf"/"infinity".
func ParseTime(s string) (Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inf", "+inf", "infinity":
		return Infinity, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return Time(v), nil
}

// MarshalYAML writes finite times as integers and Infinity as "inf".
func (t Time) MarshalYAML() (interface{}, error) {
	if t == Infinity {
		return "inf", nil
	}
	return int64(t), nil
}

// UnmarshalYAML accepts the forms produced by MarshalYAML.
func (t *Time) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: time must be a scalar", value.Line)
	}
	parsed, err := ParseTime(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*t = parsed
	return nil
}
