package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthsByName = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

const monthAlternation = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	reISODate      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDayMonthYear = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthAlternation + `)\.?,?\s+(\d{2,4})\b`)
	reMonthDayYear = regexp.MustCompile(`(?i)\b(` + monthAlternation + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{2,4})\b`)
	reNumericDate  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)

	reURLPathDate = regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})(?:/|$)`)
	reURLSlugDate = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
)

// ISODate extracts the first recognizable date from text as YYYY-MM-DD.
// Formats are tried in a fixed priority order: explicit ISO, day-first with a
// month name, month-first with a month name, then numeric M/D/Y or D/M/Y.
// A match that is not a real calendar date is skipped.
func ISODate(text string) (string, bool) {
	if m := reISODate.FindStringSubmatch(text); m != nil {
		if iso, ok := buildISO(m[1], m[2], m[3]); ok {
			return iso, true
		}
	}

	if m := reDayMonthYear.FindStringSubmatch(text); m != nil {
		month := monthsByName[strings.ToLower(m[2])]
		if iso, ok := buildISO(normalizeYear(m[3]), strconv.Itoa(month), m[1]); ok {
			return iso, true
		}
	}

	if m := reMonthDayYear.FindStringSubmatch(text); m != nil {
		month := monthsByName[strings.ToLower(m[1])]
		if iso, ok := buildISO(normalizeYear(m[3]), strconv.Itoa(month), m[2]); ok {
			return iso, true
		}
	}

	if m := reNumericDate.FindStringSubmatch(text); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])

		month, day := m[1], m[2]
		if first > 12 && second <= 12 {
			// Day-first when the leading component cannot be a month.
			month, day = m[2], m[1]
		}
		if iso, ok := buildISO(normalizeYear(m[3]), month, day); ok {
			return iso, true
		}
	}

	return "", false
}

// ISODateFromURL scans a URL for /YYYY/MM/DD/ path segments or a slug-embedded
// YYYY-MM-DD date. Used as a fallback when the body text carries no date.
func ISODateFromURL(url string) (string, bool) {
	if m := reURLPathDate.FindStringSubmatch(url); m != nil {
		if iso, ok := buildISO(m[1], m[2], m[3]); ok {
			return iso, true
		}
	}
	if m := reURLSlugDate.FindStringSubmatch(url); m != nil {
		if iso, ok := buildISO(m[1], m[2], m[3]); ok {
			return iso, true
		}
	}
	return "", false
}

// buildISO assembles and validates a calendar date. time.Date normalizes
// overflow (Feb 30 becomes Mar 2), so the components are compared after the
// round trip to reject impossible dates.
func buildISO(yearStr, monthStr, dayStr string) (string, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return "", false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return "", false
	}

	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// normalizeYear maps two-digit years into the 1900s from 70 up, otherwise the
// 2000s.
func normalizeYear(raw string) string {
	if len(raw) != 2 {
		return raw
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return raw
	}
	if year >= 70 {
		return strconv.Itoa(1900 + year)
	}
	return strconv.Itoa(2000 + year)
}
