package timestamp

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid is returned for values that are not an ISO-8601 datetime
// carrying an explicit UTC offset or a 'Z' suffix.
var ErrInvalid = errors.New("not a valid ISO:8601 UTC datetime with +00:00 or 'Z'")

// Layout is the layout used when a watermark is rendered back to text.
const Layout = "2006-01-02T15:04:05Z"

// Calendar date and time of day in extended or basic form, at hour, minute
// or second precision. time.Parse accepts a fraction after the seconds field
// (with '.' or ',') even though the layouts do not declare one.
var clocks = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15",
	"2006-01-02 15",
	"20060102T150405",
	"20060102T1504",
}

// 'Z' or an offset as ±hh:mm, ±hhmm, ±hh or ±hh:mm:ss.
var offsets = []string{
	"Z07:00",
	"Z0700",
	"Z07",
	"Z07:00:00",
}

var layouts = func() []string {
	ls := make([]string, 0, len(clocks)*len(offsets))
	for _, clock := range clocks {
		for _, offset := range offsets {
			ls = append(ls, clock+offset)
		}
	}
	return ls
}()

type Error struct {
	Value string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%q is %s", e.Value, ErrInvalid)
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Normalize parses s and returns it in UTC. A failed first attempt is
// retried with a trailing 'Z' replaced by "+00:00".
func Normalize(s string) (time.Time, error) {
	if t, ok := parse(s); ok {
		return t, nil
	}
	if strings.HasSuffix(s, "Z") {
		if t, ok := parse(strings.TrimSuffix(s, "Z") + "+00:00"); ok {
			return t, nil
		}
	}
	return time.Time{}, &Error{Value: s}
}

// Valid reports whether s can be normalized.
func Valid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

func parse(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
