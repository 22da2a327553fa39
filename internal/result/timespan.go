package result

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	tick = 100 * time.Nanosecond
	day  = 24 * time.Hour
)

// ParseDateTime parses a Kusto datetime, which the service sends as RFC 3339
// with up to seven fractional digits.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseTimespan parses the constant timespan format [-][d.]hh:mm:ss[.fffffff].
func ParseTimespan(s string) (time.Duration, error) {
	invalid := func(why string) (time.Duration, error) {
		return 0, fmt.Errorf("invalid timespan %q: %s", s, why)
	}

	v := s
	negative := strings.HasPrefix(v, "-")
	if negative {
		v = v[1:]
	}

	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return invalid("expected hh:mm:ss")
	}

	var days, hours int64
	var err error
	if d, h, ok := strings.Cut(parts[0], "."); ok {
		if days, err = parseField(d, math.MaxInt64/int64(day)); err != nil {
			return invalid("days " + err.Error())
		}
		if hours, err = parseField(h, 23); err != nil {
			return invalid("hours " + err.Error())
		}
	} else if hours, err = parseField(parts[0], math.MaxInt64/int64(time.Hour)); err != nil {
		return invalid("hours " + err.Error())
	}

	minutes, err := parseField(parts[1], 59)
	if err != nil {
		return invalid("minutes " + err.Error())
	}

	secPart, fracPart, hasFrac := strings.Cut(parts[2], ".")
	seconds, err := parseField(secPart, 59)
	if err != nil {
		return invalid("seconds " + err.Error())
	}

	var ticks int64
	if hasFrac {
		if fracPart == "" || len(fracPart) > 7 {
			return invalid("fraction must have 1 to 7 digits")
		}
		n, err := parseField(fracPart, 9999999)
		if err != nil {
			return invalid("fraction " + err.Error())
		}
		for i := len(fracPart); i < 7; i++ {
			n *= 10
		}
		ticks = n
	}

	total := new(nanoSum).
		add(days, int64(day)).
		add(hours, int64(time.Hour)).
		add(minutes, int64(time.Minute)).
		add(seconds, int64(time.Second)).
		add(ticks, int64(tick))
	if total.overflow {
		return invalid("out of range")
	}
	d := time.Duration(total.sum)
	if negative {
		d = -d
	}
	return d, nil
}

func parseField(s string, max int64) (int64, error) {
	if s == "" {
		return 0, errors.New("is empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%q is not a number", s)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n > max {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return n, nil
}

// nanoSum accumulates non-negative nanoseconds and flags int64 overflow.
type nanoSum struct {
	sum      int64
	overflow bool
}

func (b *nanoSum) add(n, unit int64) *nanoSum {
	if b.overflow || n == 0 {
		return b
	}
	if n > (math.MaxInt64-b.sum)/unit {
		b.overflow = true
		return b
	}
	b.sum += n * unit
	return b
}

// FormatTimespan renders d in the constant timespan format. Precision below
// one tick (100ns) is dropped.
func FormatTimespan(d time.Duration) string {
	if d/tick == 0 {
		return "00:00:00"
	}

	var sb strings.Builder
	// work in ticks so math.MinInt64 can be negated
	ticks := int64(d / tick)
	if ticks < 0 {
		sb.WriteByte('-')
		ticks = -ticks
	}

	const ticksPerSecond = int64(time.Second / tick)
	days := ticks / (int64(day / tick))
	hours := ticks / (int64(time.Hour / tick)) % 24
	minutes := ticks / (int64(time.Minute / tick)) % 60
	seconds := ticks / ticksPerSecond % 60
	frac := ticks % ticksPerSecond

	if days > 0 {
		fmt.Fprintf(&sb, "%d.", days)
	}
	fmt.Fprintf(&sb, "%02d:%02d:%02d", hours, minutes, seconds)
	if frac > 0 {
		fmt.Fprintf(&sb, ".%07d", frac)
	}
	return sb.String()
}
