package shop

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	sizeAndSep   = regexp.MustCompile(`(?i)\s+y\s+`)
	sizeDashSep  = regexp.MustCompile(`\s*[-/;]\s*`)
	sizeSpaceSep = regexp.MustCompile(`\s+`)

	inDaysPattern  = regexp.MustCompile(`en (\d+) d[ií]as?`)
	dayOnlyPattern = regexp.MustCompile(`^el (\d{1,2})$`)
	dayMonthYear   = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
	dayMonth       = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})`)

	thousandsOnly = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)
)

// ParseSizes splits "S, M y L", "38-40-42" or "6 8 10" into distinct sizes.
func ParseSizes(input string) []string {
	cleaned := strings.TrimSpace(input)
	if cleaned == "" {
		return nil
	}
	cleaned = sizeAndSep.ReplaceAllString(cleaned, ",")
	cleaned = sizeDashSep.ReplaceAllString(cleaned, ",")
	cleaned = sizeSpaceSep.ReplaceAllString(cleaned, ",")

	seen := make(map[string]bool)
	var sizes []string
	for _, part := range strings.Split(cleaned, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[strings.ToUpper(part)] {
			continue
		}
		seen[strings.ToUpper(part)] = true
		sizes = append(sizes, part)
	}
	return sizes
}

// DistributeQuantity splits total across count slots as evenly as possible,
// giving the remainder to the first slots.
func DistributeQuantity(total, count int) []int {
	if count <= 0 {
		return nil
	}
	out := make([]int, count)
	if total <= 0 {
		return out
	}
	base, rem := total/count, total%count
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// ParseNaturalDate understands "en N días", "mañana", "el 25", "DD/MM",
// "DD/MM/YYYY" and ISO dates. It returns a YYYY-MM-DD date.
func ParseNaturalDate(input string, now time.Time) (string, bool) {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return "", false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if isoDate.MatchString(text) {
		if _, err := time.Parse(DateLayout, text); err == nil {
			return text, true
		}
		return "", false
	}

	if m := inDaysPattern.FindStringSubmatch(text); m != nil {
		days, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, days).Format(DateLayout), true
	}

	if strings.Contains(text, "pasado mañana") {
		return today.AddDate(0, 0, 2).Format(DateLayout), true
	}
	if strings.Contains(text, "mañana") {
		return today.AddDate(0, 0, 1).Format(DateLayout), true
	}

	if m := dayOnlyPattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		if day < 1 || day > 31 {
			return "", false
		}
		// Next month that has this day, from the current one on.
		for i := 0; i < 12; i++ {
			first := time.Date(now.Year(), now.Month()+time.Month(i), 1, 0, 0, 0, 0, now.Location())
			target := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, now.Location())
			if target.Day() != day || target.Before(today) {
				continue
			}
			return target.Format(DateLayout), true
		}
		return "", false
	}

	if m := dayMonthYear.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		return buildDate(year, month, day, now.Location())
	}

	if m := dayMonth.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		date, ok := buildDate(now.Year(), month, day, now.Location())
		if !ok {
			return "", false
		}
		target, _ := time.ParseInLocation(DateLayout, date, now.Location())
		// A date far in the past most likely means next year.
		if target.Before(today.AddDate(0, 0, -90)) {
			return target.AddDate(1, 0, 0).Format(DateLayout), true
		}
		return date, true
	}

	return "", false
}

func buildDate(year, month, day int, loc *time.Location) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return "", false
	}
	return t.Format(DateLayout), true
}

// NormalizeDate turns sheet dates written as D/M/YYYY into YYYY-MM-DD.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if isoDate.MatchString(s) {
		return s
	}
	parts := strings.Split(s, "/")
	if len(parts) == 3 {
		return parts[2] + "-" + pad2(parts[1]) + "-" + pad2(parts[0])
	}
	return s
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ParseMoney reads amounts as written in the sheet or by the model:
// "15000", "15000.5", "15.000", "$ 15.000,50".
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "$", ""))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") || thousandsOnly.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

func parseMoneyOrZero(s string) decimal.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseIntOrZero(s string) int {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	n, err := strconv.Atoi(s)
	if err != nil {
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return n
}
