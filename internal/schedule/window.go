package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock 一天中的某个时刻, 精度到秒
type Clock struct {
	Hour   int
	Minute int
	Second int
}

func (c Clock) seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

func (c Clock) String() string {
	if c.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ClockOf returns the time of day of t in t's own location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

type ConfigError struct {
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid time of day %q: %v", e.Value, e.Cause)
	}
	return fmt.Sprintf("invalid time of day %q", e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ParseClock accepts H:MM, HH:MM and HH:MM:SS. A bound without seconds
// means second 0, so end "06:00" excludes 06:00:30.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Clock{}, &ConfigError{Value: s}
	}
	fields := make([]int, len(parts))
	for i, p := range parts {
		if p == "" || len(p) > 2 {
			return Clock{}, &ConfigError{Value: s}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Clock{}, &ConfigError{Value: s, Cause: err}
		}
		fields[i] = n
	}
	if fields[0] < 0 || fields[0] > 23 || fields[1] < 0 || fields[1] > 59 {
		return Clock{}, &ConfigError{Value: s}
	}
	if len(fields) == 3 && (fields[2] < 0 || fields[2] > 59) {
		return Clock{}, &ConfigError{Value: s}
	}
	c := Clock{Hour: fields[0], Minute: fields[1]}
	if len(fields) == 3 {
		c.Second = fields[2]
	}
	return c, nil
}

// InWindow reports whether now falls inside [start, end]. A window whose
// start is after its end wraps past midnight. Unparseable bounds fail open.
func InWindow(start, end string, now time.Time) bool {
	s, err := ParseClock(start)
	if err != nil {
		return true
	}
	e, err := ParseClock(end)
	if err != nil {
		return true
	}
	return contains(s, e, ClockOf(now))
}

func contains(start, end, now Clock) bool {
	s, e, n := start.seconds(), end.seconds(), now.seconds()
	if s <= e {
		return s <= n && n <= e
	}
	return n >= s || n <= e
}

type Window struct {
	Start string
	End   string
}

func (w Window) Contains(now time.Time) bool {
	return InWindow(w.Start, w.End, now)
}

// Validate returns the first bound that fails to parse. Contains stays
// permissive regardless of the result.
func (w Window) Validate() error {
	if _, err := ParseClock(w.Start); err != nil {
		return err
	}
	if _, err := ParseClock(w.End); err != nil {
		return err
	}
	return nil
}

func (w Window) String() string {
	return w.Start + "-" + w.End
}
