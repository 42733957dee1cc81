package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return atSec(hour, minute, 0)
}

func atSec(hour, minute, second int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, second, 0, time.UTC)
}

func TestInWindow(t *testing.T) {
	testCases := []struct {
		name  string
		start string
		end   string
		now   time.Time
		want  bool
	}{
		{name: "same day inside", start: "09:00", end: "17:00", now: at(12, 0), want: true},
		{name: "same day before", start: "09:00", end: "17:00", now: at(8, 59), want: false},
		{name: "same day after", start: "09:00", end: "17:00", now: at(17, 1), want: false},
		{name: "start inclusive", start: "09:00", end: "17:00", now: at(9, 0), want: true},
		{name: "end inclusive", start: "09:00", end: "17:00", now: at(17, 0), want: true},
		{name: "full day", start: "00:00", end: "23:59", now: at(23, 59), want: true},
		{name: "single minute", start: "10:15", end: "10:15", now: at(10, 15), want: true},
		{name: "wrap late evening", start: "22:00", end: "06:00", now: at(23, 30), want: true},
		{name: "wrap early morning", start: "22:00", end: "06:00", now: at(5, 59), want: true},
		{name: "wrap midday", start: "22:00", end: "06:00", now: at(12, 0), want: false},
		{name: "wrap just after end", start: "22:00", end: "06:00", now: at(6, 1), want: false},
		{name: "single digit hour", start: "9:00", end: "17:00", now: at(9, 30), want: true},
		{name: "end excludes later seconds", start: "09:00", end: "17:00", now: atSec(17, 0, 30), want: false},
		{name: "start includes later seconds", start: "09:00", end: "17:00", now: atSec(9, 0, 30), want: true},
		{name: "wrap end excludes later seconds", start: "22:00", end: "06:00", now: atSec(6, 0, 30), want: false},
		{name: "wrap end inclusive", start: "22:00", end: "06:00", now: at(6, 0), want: true},
		{name: "last seconds of full day", start: "00:00", end: "23:59", now: atSec(23, 59, 30), want: false},
		{name: "explicit seconds", start: "09:00:45", end: "17:00:00", now: atSec(9, 0, 30), want: false},
		{name: "explicit seconds inside", start: "09:00:45", end: "17:00:00", now: atSec(9, 0, 45), want: true},
		{name: "bad start fails open", start: "nope", end: "06:00", now: at(12, 0), want: true},
		{name: "bad end fails open", start: "22:00", end: "25:00", now: at(12, 0), want: true},
		{name: "empty fails open", start: "", end: "", now: at(12, 0), want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InWindow(tc.start, tc.end, tc.now))
		})
	}
}

func TestInWindowExhaustive(t *testing.T) {
	bounds := []Clock{{Hour: 0}, {Hour: 6}, {Hour: 12, Minute: 30}, {Hour: 22}, {Hour: 23, Minute: 59}}
	for _, s := range bounds {
		for _, e := range bounds {
			for m := 0; m < 24*60; m += 7 {
				now := at(m/60, m%60)
				var want bool
				sm, em := s.Hour*60+s.Minute, e.Hour*60+e.Minute
				if sm <= em {
					want = sm <= m && m <= em
				} else {
					want = m >= sm || m <= em
				}
				require.Equal(t, want, InWindow(s.String(), e.String(), now), "%s-%s at %d", s, e, m)
			}
		}
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock(" 07:05 ")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 7, Minute: 5}, c)
	assert.Equal(t, "07:05", c.String())

	c, err = ParseClock("07:05:09")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 7, Minute: 5, Second: 9}, c)
	assert.Equal(t, "07:05:09", c.String())

	for _, bad := range []string{"24:00", "12:60", "1200", "12:3a", "12::", "123:00", "-1:00", "12:00:61"} {
		_, err := ParseClock(bad)
		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr), bad)
	}
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, Window{Start: "22:00", End: "06:00"}.Validate())
	w := Window{Start: "22:00", End: "xx"}
	assert.Error(t, w.Validate())
	assert.True(t, w.Contains(at(12, 0)))
}
