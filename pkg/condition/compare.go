package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/macropower/conductor/pkg/operator"
)

var (
	reBoolish   = regexp.MustCompile(`(?i)^(y(es)?|no?|t(rue)?|f(alse)?)$`)
	reTruthy    = regexp.MustCompile(`(?i)^[yt]`)
	reRegexLike = regexp.MustCompile(`^/.*/$`)

	reTypeNumber  = regexp.MustCompile(`(?i)number`)
	reTypeInteger = regexp.MustCompile(`(?i)int(eger)?`)
	reTypeFloat   = regexp.MustCompile(`(?i)(float|decimal)`)
	reTypeArray   = regexp.MustCompile(`(?i)array`)
	reTypeString  = regexp.MustCompile(`(?i)(string|text)`)
	reTypeDate    = regexp.MustCompile(`(?i)date`)
)

// Compare tests value1 against comparand using op. A nil value1 means the
// value is absent, and hasComparand false means there is nothing to compare
// against, in which case only presence is tested.
func Compare(value1 any, comparand string, hasComparand bool, op operator.Kind) bool {
	if !hasComparand {
		if op == operator.NotEqual {
			return value1 == nil
		}

		return value1 != nil
	}

	if value1 == nil {
		return op == operator.NotEqual
	}

	switch op {
	case operator.TypeOf:
		return isType(value1, comparand)
	case operator.NotTypeOf:
		return !isType(value1, comparand)
	default:
	}

	value1 = flatten(value1)

	if res, ok := compareDates(value1, comparand, op); ok {
		return res
	}

	if b, ok := toBool(value1); ok {
		return compareBool(b, comparand, op)
	}

	if res, ok := compareNumbers(value1, comparand, op); ok {
		return res
	}

	return matchString(stringify(value1), comparand, op)
}

// flatten joins lists with commas.
func flatten(v any) any {
	switch vv := v.(type) {
	case []string:
		return strings.Join(vv, ",")
	case []any:
		parts := make([]string, 0, len(vv))
		for _, p := range vv {
			parts = append(parts, stringify(p))
		}

		return strings.Join(parts, ",")
	}

	return v
}

func stringify(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case time.Time:
		return vv.Format(time.RFC3339)
	}

	return fmt.Sprint(v)
}

func toBool(v any) (value, ok bool) {
	switch vv := v.(type) {
	case bool:
		return vv, true
	case string:
		if reBoolish.MatchString(strings.TrimSpace(vv)) {
			return reTruthy.MatchString(strings.TrimSpace(vv)), true
		}
	}

	return false, false
}

func compareBool(b bool, comparand string, op operator.Kind) bool {
	want, ok := toBool(comparand)
	if !ok {
		return false
	}

	res := b == want
	if op == operator.NotEqual || op == operator.NotContains {
		return !res
	}

	return res
}

func toFloat(v any) (float64, bool) {
	switch vv := v.(type) {
	case int:
		return float64(vv), true
	case int8:
		return float64(vv), true
	case int16:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case uint:
		return float64(vv), true
	case uint8:
		return float64(vv), true
	case uint16:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case float32:
		return float64(vv), true
	case float64:
		return vv, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(vv), 64)
		if err == nil {
			return f, true
		}
	}

	return 0, false
}

func compareNumbers(value1 any, comparand string, op operator.Kind) (result, ok bool) {
	switch op {
	case operator.GreaterThan, operator.LessThan, operator.Equal, operator.NotEqual:
	default:
		return false, false
	}

	f1, ok1 := toFloat(value1)
	f2, ok2 := toFloat(comparand)
	if !ok1 || !ok2 {
		return false, false
	}

	switch op {
	case operator.GreaterThan:
		return f1 > f2, true
	case operator.LessThan:
		return f1 < f2, true
	case operator.NotEqual:
		return f1 != f2, true
	default:
		return f1 == f2, true
	}
}

// comparandPattern turns a comparand into a regular expression. Comparands
// written as /pattern/ are used as-is when they compile.
func comparandPattern(comparand string) string {
	trimmed := strings.TrimSpace(comparand)
	if len(trimmed) >= 2 && reRegexLike.MatchString(trimmed) {
		inner := trimmed[1 : len(trimmed)-1]
		if _, err := regexp.Compile(inner); err == nil {
			return inner
		}
	}

	return regexp.QuoteMeta(comparand)
}

func matchString(s, comparand string, op operator.Kind) bool {
	pattern := comparandPattern(comparand)

	var expr string

	switch op {
	case operator.Contains, operator.NotContains:
		expr = pattern
	case operator.StartsWith, operator.NotStartsWith:
		expr = "^(?:" + pattern + ")"
	case operator.EndsWith, operator.NotEndsWith:
		expr = "(?:" + pattern + ")$"
	case operator.Equal, operator.NotEqual:
		expr = "^(?:" + pattern + ")$"
	default:
		return false
	}

	re, err := regexp.Compile("(?im)" + expr)
	if err != nil {
		return false
	}

	res := re.MatchString(s)
	if op.Negated() {
		return !res
	}

	return res
}

func isType(v any, typ string) bool {
	switch {
	case reTypeNumber.MatchString(typ):
		_, ok := toFloat(v)
		return ok
	case reTypeInteger.MatchString(typ):
		return isInteger(v)
	case reTypeFloat.MatchString(typ):
		return isFloat(v)
	case reTypeArray.MatchString(typ):
		switch v.(type) {
		case []any, []string:
			return true
		}

		return false
	case reTypeString.MatchString(typ):
		_, ok := v.(string)
		return ok
	case reTypeDate.MatchString(typ):
		_, _, ok := parseDateValue(v)
		return ok
	}

	return false
}

func isInteger(v any) bool {
	switch vv := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(vv), 10, 64)
		return err == nil
	}

	return false
}

func isFloat(v any) bool {
	switch vv := v.(type) {
	case float32, float64:
		return true
	case string:
		s := strings.TrimSpace(vv)
		_, err := strconv.ParseFloat(s, 64)

		return err == nil && strings.Contains(s, ".")
	}

	return false
}
