package condition

import (
	"regexp"
	"strings"
	"time"

	"github.com/macropower/conductor/pkg/operator"
)

var (
	reDateShaped = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[ T].*)?$`)
	reHasTime    = regexp.MustCompile(`(?i)( \d{1,2}(:\d\d)? *([ap]m)?|T\d{2}:\d{2})`)
)

const dateLayout = "2006-01-02"

// Layouts tried in order. Layouts containing "pm" are matched against the
// lowercased input.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04pm",
	"2006-01-02 3:04 pm",
	"2006-01-02 3pm",
	"2006-01-02 3 pm",
	"2006-01-02 15",
}

// parseDate parses a date with an optional time of day.
func parseDate(s string) (t time.Time, hasTime, ok bool) {
	s = strings.TrimSpace(s)
	if !reDateShaped.MatchString(s) {
		return time.Time{}, false, false
	}

	if !reHasTime.MatchString(s) {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		return t, false, err == nil
	}

	for _, layout := range dateTimeLayouts {
		in := s
		if strings.Contains(layout, "pm") {
			in = strings.ToLower(s)
		}

		t, err := time.ParseInLocation(layout, in, time.Local)
		if err == nil {
			return t, true, true
		}
	}

	return time.Time{}, false, false
}

func parseDateValue(v any) (t time.Time, hasTime, ok bool) {
	switch vv := v.(type) {
	case time.Time:
		if vv.Hour() == 0 && vv.Minute() == 0 && vv.Second() == 0 && vv.Nanosecond() == 0 {
			// Bare YAML dates decode as UTC midnight.
			y, m, d := vv.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.Local), false, true
		}

		return vv, true, true
	case string:
		return parseDate(vv)
	}

	return time.Time{}, false, false
}

// compareDates compares date-shaped values. It reports ok false when either
// side is not a date or op does not apply to dates.
func compareDates(value1 any, comparand string, op operator.Kind) (result, ok bool) {
	switch op {
	case operator.GreaterThan, operator.LessThan, operator.Equal, operator.NotEqual:
	default:
		return false, false
	}

	d1, _, ok1 := parseDateValue(value1)
	d2, withTime, ok2 := parseDate(comparand)
	if !ok1 || !ok2 {
		return false, false
	}

	d1 = d1.Truncate(time.Minute)

	if withTime {
		d2 = d2.Truncate(time.Minute)

		switch op {
		case operator.GreaterThan:
			return d1.After(d2), true
		case operator.LessThan:
			return d1.Before(d2), true
		case operator.NotEqual:
			return !d1.Equal(d2), true
		default:
			return d1.Equal(d2), true
		}
	}

	y, m, d := d2.Date()

	switch op {
	case operator.GreaterThan:
		return d1.After(time.Date(y, m, d, 23, 59, 0, 0, d2.Location())), true
	case operator.LessThan:
		return d1.Before(time.Date(y, m, d, 0, 0, 0, 0, d2.Location())), true
	case operator.NotEqual:
		return !sameDay(d1, d2), true
	default:
		return sameDay(d1, d2), true
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}
