package search

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"

	"media-catalog/internal/metadata"
	"media-catalog/internal/props"
)

var monthAbbrev = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// parseMonth resolves a month name or abbreviation to 1-12.
func parseMonth(s string) int {
	s = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if len(s) < 3 {
		return 0
	}
	for i, full := range monthNames {
		if s == full || s == monthAbbrev[i] || (s == "sept" && i == 8) {
			return i + 1
		}
	}
	return 0
}

var (
	reDuration  = regexp.MustCompile(`^(\d{1,3}):([0-5]\d)(?::([0-5]\d))?$`)
	reMonthDay  = regexp.MustCompile(`^([a-zA-Z]{3,9})[-/. ]?(\d{1,2})$`)
	reDayMonth  = regexp.MustCompile(`^(\d{1,2})[-/. ]?([a-zA-Z]{3,9})$`)
	reYearMonth = regexp.MustCompile(`^(\d{4})[-/.]([a-zA-Z]{3,9}|\d{1,2})$`)
	reMonthYear = regexp.MustCompile(`^([a-zA-Z]{3,9}[-/. ]?|\d{1,2}[-/.])(\d{4})$`)
	reYMD       = regexp.MustCompile(`^(\d{4})[-/.]([a-zA-Z]{3,9}|\d{1,2})[-/.](\d{1,2})$`)
	reDMY       = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})$`)
	reFNumber   = regexp.MustCompile(`^(?i)f/?(\d+(?:\.\d+)?)$`)
	reISO       = regexp.MustCompile(`^(?i)iso\s*(\d{2,6})$`)
	reExposure  = regexp.MustCompile(`^(\d+)/(\d+)\s*s?$`)
	reSeconds   = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*s$`)
	reFocal     = regexp.MustCompile(`^(?i)(\d+(?:\.\d+)?)\s*mm$`)
	reMP        = regexp.MustCompile(`^(?i)(\d+(?:\.\d+)?)\s*mp$`)
	reDims      = regexp.MustCompile(`^(\d{1,6})\s*[x×]\s*(\d{1,6})$`)
	rePair      = regexp.MustCompile(`^(\d+)\s*(?:/|of)\s*(\d+)$`)
	reAge       = regexp.MustCompile(`^(?i)(\d+)\s*(h|d|w|m|y|hours?|days?|weeks?|months?|years?)?$`)
	reTimeLen   = regexp.MustCompile(`^(?i)(\d+(?:\.\d+)?)\s*(s|m|h|sec|min|hr|secs|mins|hrs|seconds?|minutes?|hours?)$`)
)

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

// parseDuration parses "H:MM", "H:MM:SS" or "90s"/"2m"/"1h" into seconds.
func parseDuration(s string) (int, bool) {
	if m := reDuration.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if m[3] == "" {
			return a*60 + b, true
		}
		c, _ := strconv.Atoi(m[3])
		return a*3600 + b*60 + c, true
	}
	if m := reTimeLen.FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		switch strings.ToLower(m[2])[0] {
		case 'm':
			v *= 60
		case 'h':
			v *= 3600
		}
		return int(math.Round(v)), true
	}
	if isInteger(s) {
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	return 0, false
}

// parseAge parses "7", "7d", "2w", "3m", "1y" or "12h" into days.
func parseAge(s string) (int, bool) {
	m := reAge.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	unit := strings.ToLower(m[2])
	if unit == "" {
		return n, true
	}
	switch unit[0] {
	case 'h':
		return n / 24, true
	case 'w':
		return n * 7, true
	case 'm':
		return n * 30, true
	case 'y':
		return n * 365, true
	}
	return n, true
}

func monthOrNumber(s string) int {
	if isInteger(s) {
		n, _ := strconv.Atoi(s)
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	return parseMonth(s)
}

// parseDateParts recognises the partial date forms used in queries:
// "2023-dec-25", "2023-12", "dec 2023", "dec-25", "25 dec", "december".
// It falls back to dateparse for anything else that is not a bare number.
func parseDateParts(s string) (DateParts, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateParts{}, false
	}
	if m := reYMD.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo := monthOrNumber(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo != 0 && d >= 1 && d <= 31 {
			return DateParts{Year: y, Month: mo, Day: d}, true
		}
	}
	if d, ok := parseMonthDay(s); ok {
		return d, true
	}
	if d, ok := parseYearMonth(s); ok {
		return d, true
	}
	if isInteger(s) {
		n, _ := strconv.Atoi(s)
		if n >= 1800 && n < 2100 {
			return DateParts{Year: n}, true
		}
		return DateParts{}, false
	}
	if mo := parseMonth(s); mo != 0 {
		return DateParts{Month: mo}, true
	}
	if d, ok := parseNumericDate(s); ok {
		return d, true
	}
	if d, ok := parseWordDate(s); ok {
		return d, true
	}
	return parseFullDate(s)
}

// parseNumericDate reads "25.12.2023", "12/25/2023" and "12-25-2023". The
// first number is the month unless it can only be a day.
func parseNumericDate(s string) (DateParts, bool) {
	m := reDMY.FindStringSubmatch(s)
	if m == nil {
		return DateParts{}, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	if y < 1800 || y >= 2100 {
		return DateParts{}, false
	}
	switch {
	case a >= 1 && a <= 12 && b >= 1 && b <= 31:
		return DateParts{Year: y, Month: a, Day: b}, true
	case a > 12 && a <= 31 && b >= 1 && b <= 12:
		return DateParts{Year: y, Month: b, Day: a}, true
	}
	return DateParts{}, false
}

func dateFieldSep(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == '-' || r == '/'
}

// parseWordDate reads a date written as a month name plus a day, a year or
// both, in any order: "dec 25 2023", "December 25, 2023", "25th of
// December 2023", "2023 dec 25".
func parseWordDate(s string) (DateParts, bool) {
	fields := strings.FieldsFunc(strings.ToLower(s), dateFieldSep)
	if len(fields) < 2 || len(fields) > 4 {
		return DateParts{}, false
	}
	var d DateParts
	for _, f := range fields {
		f = strings.TrimSuffix(f, ".")
		if f == "of" {
			continue
		}
		if mo := parseMonth(f); mo != 0 {
			if d.Month != 0 {
				return DateParts{}, false
			}
			d.Month = mo
			continue
		}
		if n, ok := yearField(f); ok && d.Year == 0 {
			d.Year = n
			continue
		}
		if n, ok := dayField(f); ok && d.Day == 0 {
			d.Day = n
			continue
		}
		return DateParts{}, false
	}
	if d.Month == 0 || (d.Day == 0 && d.Year == 0) {
		return DateParts{}, false
	}
	return d, true
}

func yearField(f string) (int, bool) {
	if len(f) != 4 || !isInteger(f) {
		return 0, false
	}
	n, _ := strconv.Atoi(f)
	return n, n >= 1800 && n < 2100
}

func dayField(f string) (int, bool) {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		f = strings.TrimSuffix(f, suffix)
	}
	if len(f) > 2 || !isInteger(f) {
		return 0, false
	}
	n, _ := strconv.Atoi(f)
	return n, n >= 1 && n <= 31
}

// isDateWord reports whether a query fragment can be one piece of a date
// written across several words.
func isDateWord(s string) bool {
	f := strings.TrimRight(strings.ToLower(s), ",.")
	if f == "of" || parseMonth(f) != 0 {
		return true
	}
	if _, ok := yearField(f); ok {
		return true
	}
	_, ok := dayField(f)
	return ok
}

func parseMonthDay(s string) (DateParts, bool) {
	if m := reMonthDay.FindStringSubmatch(s); m != nil {
		mo := parseMonth(m[1])
		d, _ := strconv.Atoi(m[2])
		if mo != 0 && d >= 1 && d <= 31 {
			return DateParts{Month: mo, Day: d}, true
		}
	}
	if m := reDayMonth.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo := parseMonth(m[2])
		if mo != 0 && d >= 1 && d <= 31 {
			return DateParts{Month: mo, Day: d}, true
		}
	}
	return DateParts{}, false
}

func parseYearMonth(s string) (DateParts, bool) {
	if m := reYearMonth.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		if mo := monthOrNumber(m[2]); mo != 0 {
			return DateParts{Year: y, Month: mo}, true
		}
	}
	if m := reMonthYear.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[2])
		if mo := monthOrNumber(strings.TrimRight(m[1], "-/. ")); mo != 0 {
			return DateParts{Year: y, Month: mo}, true
		}
	}
	return DateParts{}, false
}

// parseFullDate accepts any complete date dateparse understands.
func parseFullDate(s string) (d DateParts, ok bool) {
	if isInteger(s) {
		return DateParts{}, false
	}
	defer func() {
		if recover() != nil {
			d, ok = DateParts{}, false
		}
	}()
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || t.Year() < 1800 || t.Year() >= 2100 {
		return DateParts{}, false
	}
	return DateParts{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, true
}

// DaysSinceEpoch returns the calendar day of t, in t's own location, as a
// day count since 1970-01-01.
func DaysSinceEpoch(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// parseLocation parses "lat,lon" or "lat,lon,radiusKm".
func parseLocation(s string) (metadata.Coordinate, float64, bool) {
	fields := strings.Split(s, ",")
	if len(fields) < 2 || len(fields) > 3 {
		return metadata.Coordinate{}, 0, false
	}
	lat, ok1 := parseFloat(fields[0])
	lon, ok2 := parseFloat(fields[1])
	if !ok1 || !ok2 {
		return metadata.Coordinate{}, 0, false
	}
	radius := 1.0
	if len(fields) == 3 {
		r, ok := parseFloat(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(fields[2])), "km"))
		if !ok || r <= 0 {
			return metadata.Coordinate{}, 0, false
		}
		radius = r
	}
	c := metadata.Coordinate{Latitude: lat, Longitude: lon}
	if !c.IsValid() {
		return metadata.Coordinate{}, 0, false
	}
	return c, radius, true
}

// parseSize parses "2gb", "500 KB" or a plain byte count.
func parseSize(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if isInteger(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil || n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

// parseExposure parses "1/500", "1/500s", "0.5s" or "2".
func parseExposure(s string) (float64, bool) {
	if m := reExposure.FindStringSubmatch(s); m != nil {
		a, _ := strconv.ParseFloat(m[1], 64)
		b, _ := strconv.ParseFloat(m[2], 64)
		if b == 0 {
			return 0, false
		}
		return a / b, true
	}
	if m := reSeconds.FindStringSubmatch(s); m != nil {
		return parseFloat(m[1])
	}
	return parseFloat(s)
}

func parseFNumber(s string) (float64, bool) {
	if m := reFNumber.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return parseFloat(m[1])
	}
	return 0, false
}

func parseISO(s string) (int, bool) {
	if m := reISO.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	if isInteger(s) {
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	return 0, false
}

func parseFocal(s string) (float64, bool) {
	if m := reFocal.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return parseFloat(m[1])
	}
	return parseFloat(s)
}

func parseMegapixels(s string) (float64, bool) {
	if m := reMP.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return parseFloat(m[1])
	}
	return parseFloat(s)
}

// parsePair parses "1920x1080", "3/12", "3 of 12" or "3".
func parsePair(key props.Key, s string) (metadata.Pair, bool) {
	s = strings.TrimSpace(s)
	if m := reDims.FindStringSubmatch(s); m != nil {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return metadata.Pair{X: x, Y: y}, true
	}
	if key != props.Dimensions {
		if m := rePair.FindStringSubmatch(s); m != nil {
			x, _ := strconv.Atoi(m[1])
			y, _ := strconv.Atoi(m[2])
			return metadata.Pair{X: x, Y: y}, true
		}
		if isInteger(s) {
			x, _ := strconv.Atoi(s)
			return metadata.Pair{X: x}, true
		}
	}
	return metadata.Pair{}, false
}
