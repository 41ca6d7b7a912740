package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	displayDateLayout = "02/01/2006"
	displayTimeLayout = "15 h 04"
	cardLayout        = "02/01/2006 15 h 04"
	isoDateLayout     = "2006-01-02"
	compactLayout     = "20060102"
)

// stringLayouts are the textual date forms tried, in order, before a string is shown verbatim.
var stringLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	isoDateLayout,
	displayDateLayout,
	"02/01/2006 15:04:05",
	compactLayout,
}

// text renders a scanned cell as a string. NULL is the empty string.
func text(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.DateTime), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("unsupported cell type %T", v)
}

// parseTemporal converts a timestamp, a date string or a YYYYMMDD integer to a time.
func parseTemporal(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case int64:
		return parseCompact(x)
	case int32:
		return parseCompact(int64(x))
	case int:
		return parseCompact(int64(x))
	case float64:
		if x == math.Trunc(x) {
			return parseCompact(int64(x))
		}
	case []byte:
		return parseDateString(string(x))
	case string:
		return parseDateString(x)
	}
	return time.Time{}, false
}

func parseCompact(n int64) (time.Time, bool) {
	if n < 10000101 || n > 99991231 {
		return time.Time{}, false
	}
	t, err := time.Parse(compactLayout, strconv.FormatInt(n, 10))
	return t, err == nil
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// displayDate renders a date cell as DD/MM/YYYY, or as its raw text when it does not
// parse as a date.
func displayDate(v any) (string, error) {
	if t, ok := parseTemporal(v); ok {
		return t.Format(displayDateLayout), nil
	}
	s, err := text(v)
	return strings.TrimSpace(s), err
}

// displayTime renders the appointment time. The database stores it as free text;
// a native timestamp is shown as "09 h 00".
func displayTime(v any) (string, error) {
	if t, ok := v.(time.Time); ok {
		return t.Format(displayTimeLayout), nil
	}
	s, err := text(v)
	return strings.TrimSpace(s), err
}

// schedule joins the rendered date and time, e.g. "31/03/2021 09 h 00".
func schedule(date, tod any) (string, error) {
	d, err := displayDate(date)
	if err != nil {
		return "", fmt.Errorf("rdv_date: %w", err)
	}
	h, err := displayTime(tod)
	if err != nil {
		return "", fmt.Errorf("rdv_heure: %w", err)
	}
	return strings.TrimSpace(d + " " + h), nil
}

// cardSchedule renders the single appointment timestamp of the client card.
func cardSchedule(v any) string {
	if t, ok := parseTemporal(v); ok {
		return t.Format(cardLayout)
	}
	s, _ := text(v)
	return strings.TrimSpace(s)
}

// isoDate renders a date as YYYY-MM-DD, or empty when it is not a date.
func isoDate(v any) string {
	if t, ok := parseTemporal(v); ok {
		return t.Format(isoDateLayout)
	}
	return ""
}

// amount renders a money cell as "1234.50 €"; NULL and zero are empty.
func amount(v any) string {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case []byte:
		f, _ = strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(x, ",", ".")), 64)
	}
	if f == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f €", f)
}

// loose renders a cell for display, ignoring the cells it cannot render.
func loose(v any) string {
	s, _ := text(v)
	return s
}
