package functions

import (
	"strconv"
	"strings"
	"time"

	"github.com/roach88/equery/internal/ir"
)

// Timestamps are Numbers holding milliseconds since the Unix epoch, UTC.

func dateScalars() []Builtin {
	return []Builtin{
		&Scalar{FuncName: "today", Impl: fnToday},
		&Scalar{FuncName: "ytoday", Impl: fnYearToday},
		&Scalar{FuncName: "years", Params: []Param{{Kind: ParamNumber}}, Impl: fnYears},
		&Scalar{FuncName: "yearsfromdate", Params: []Param{{Kind: ParamNumber}}, Impl: fnYearsFromDate},
		&Scalar{FuncName: "toUTC", Params: []Param{{Kind: ParamString}}, Impl: fnToUTC},
		&Scalar{FuncName: "parseDate", Params: []Param{{Kind: ParamString}, {Kind: ParamString, Optional: true}}, Impl: fnParseDate},
	}
}

func toTimestamp(t time.Time) ir.Value {
	return ir.Number(t.UnixMilli())
}

func fromTimestamp(v ir.Value) time.Time {
	return time.UnixMilli(int64(v.(ir.Number))).UTC()
}

func fnToday(env Env, _ []ir.Value) (ir.Value, error) {
	return toTimestamp(env.Now()), nil
}

func fnYearToday(env Env, _ []ir.Value) (ir.Value, error) {
	return ir.Number(env.Now().UTC().Year()), nil
}

func fnYears(_ Env, args []ir.Value) (ir.Value, error) {
	return ir.Number(fromTimestamp(args[0]).Year()), nil
}

// fnYearsFromDate counts whole years between the timestamp and now; an
// anniversary later in the current year does not count yet.
func fnYearsFromDate(env Env, args []ir.Value) (ir.Value, error) {
	from := fromTimestamp(args[0])
	now := env.Now().UTC()
	years := now.Year() - from.Year()
	if now.Month() < from.Month() || (now.Month() == from.Month() && now.Day() < from.Day()) {
		years--
	}
	return ir.Number(years), nil
}

func fnToUTC(_ Env, args []ir.Value) (ir.Value, error) {
	text := strings.TrimSpace(string(args[0].(ir.String)))
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, text); err == nil {
			return toTimestamp(t), nil
		}
	}
	return nil, ir.NewError(ir.ErrArgumentType, "toUTC cannot parse %q", text)
}

// fnParseDate reads a three-part date separated by '/', '-' or spaces.
// The optional layout names the part order: mdy (default), dmy or ymd.
func fnParseDate(_ Env, args []ir.Value) (ir.Value, error) {
	text := string(args[0].(ir.String))
	layout := "mdy"
	if len(args) > 1 {
		layout = strings.ToLower(string(args[1].(ir.String)))
	}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '/' || r == '-' || r == ' '
	})
	if len(parts) != 3 {
		return nil, ir.NewError(ir.ErrArgumentType, "parseDate needs three date parts, got %q", text)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, ir.NewError(ir.ErrArgumentType, "parseDate part %q is not a number", p)
		}
		nums[i] = n
	}

	var y, m, d int
	switch layout {
	case "mdy":
		m, d, y = nums[0], nums[1], nums[2]
	case "dmy":
		d, m, y = nums[0], nums[1], nums[2]
	case "ymd":
		y, m, d = nums[0], nums[1], nums[2]
	default:
		return nil, ir.NewError(ir.ErrArgumentType, "parseDate layout %q is not mdy, dmy or ymd", layout)
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return nil, ir.NewError(ir.ErrArgumentType, "parseDate %q is not a valid %s date", text, layout)
	}
	return toTimestamp(t), nil
}
