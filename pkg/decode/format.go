package decode

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout mirrors the way browsers print a Date.
const DateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// maxDateMillis is the largest magnitude a JavaScript Date accepts.
const maxDateMillis = 8.64e15

// FormatNumber prints f the way JavaScript's Number#toString does: plain
// decimal notation between 1e-6 and 1e21, exponent notation outside.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		digits := strings.TrimLeft(exp[1:], "0")
		return mant + "e" + exp[:1] + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatString quotes s as JSON without HTML escaping.
func FormatString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// FormatDate prints epoch milliseconds in loc.
func FormatDate(ms float64, loc *time.Location) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxDateMillis {
		return "Invalid Date"
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(int64(ms)).In(loc).Format(DateLayout)
}
