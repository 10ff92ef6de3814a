package bulletin

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a bulletin's publication month. Both fields are the raw text found on
// the site, e.g. {Year: "2024", Month: "September"}.
type Period struct {
	Year  string `json:"year"`
	Month string `json:"month"`
}

// Valid reports whether the year is four digits and the month is a single word of
// ASCII letters. Only valid periods name artifacts, so a key never holds a path
// separator or "..".
func (p Period) Valid() bool {
	if len(p.Year) != 4 || p.Month == "" {
		return false
	}
	for _, r := range p.Year {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, r := range p.Month {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// Key returns "<year>-<month>", the identity used for artifacts
func (p Period) Key() string {
	return fmt.Sprintf("%s-%s", p.Year, p.Month)
}

func (p Period) String() string {
	return strings.TrimSpace(p.Month + " " + p.Year)
}

// MonthNumber returns the calendar month for the period's month name,
// or 0 when the name is not an English month (full or three-letter form).
func (p Period) MonthNumber() time.Month {
	name := strings.TrimSpace(p.Month)
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, name); err == nil {
			return t.Month()
		}
	}
	// Title-case before giving up: the site has used "SEPTEMBER"
	if len(name) > 1 {
		titled := strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
		for _, layout := range []string{"January", "Jan"} {
			if t, err := time.Parse(layout, titled); err == nil {
				return t.Month()
			}
		}
	}
	return 0
}

// Before orders periods by year, then calendar month, then raw month text
func (p Period) Before(other Period) bool {
	py, _ := strconv.Atoi(p.Year)
	oy, _ := strconv.Atoi(other.Year)
	if py != oy {
		return py < oy
	}
	pm, om := p.MonthNumber(), other.MonthNumber()
	if pm != om {
		return pm < om
	}
	return p.Month < other.Month
}
