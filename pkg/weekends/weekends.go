// Package weekends parses production-calendar files: one JSON document per
// year listing the non-working days of every month.
package weekends

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// WeekendJSON is the on-disk calendar format.
type WeekendJSON struct {
	Year        int             `json:"year"`
	Months      []MonthWeekends `json:"months"`
	Transitions []Transition    `json:"transitions"`
	Statistic   Statistic       `json:"statistic"`
}

// MonthWeekends lists days as "1,2,3+,8*". A '+' marks a day moved from
// another date and '*' a shortened working day; neither changes the day itself.
type MonthWeekends struct {
	Month int    `json:"month"`
	Days  string `json:"days"`
}

type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Statistic struct {
	Workdays int     `json:"workdays"`
	Holidays int     `json:"holidays"`
	Hours40  float64 `json:"hours40"`
	Hours36  float64 `json:"hours36"`
	Hours24  float64 `json:"hours24"`
}

type Day struct {
	Date  time.Time
	Year  int
	Month int
	Day   int
}

type Calendar struct {
	Year      int
	Days      []Day
	Statistic Statistic
}

// ParseFile reads and parses a calendar file.
func ParseFile(filePath string) (*Calendar, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a calendar document. Shortened days ('*') are working days and
// are skipped.
func Parse(data []byte) (*Calendar, error) {
	var doc WeekendJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if doc.Year <= 0 {
		return nil, fmt.Errorf("calendar year is missing")
	}

	cal := &Calendar{Year: doc.Year, Statistic: doc.Statistic}
	for _, m := range doc.Months {
		if m.Month < 1 || m.Month > 12 {
			return nil, fmt.Errorf("invalid month %d", m.Month)
		}

		for _, raw := range strings.Split(m.Days, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" || strings.HasSuffix(raw, "*") {
				continue
			}
			raw = strings.TrimSuffix(raw, "+")

			day, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse day '%s' in month %d: %w", raw, m.Month, err)
			}

			date := time.Date(doc.Year, time.Month(m.Month), day, 0, 0, 0, 0, time.UTC)
			if date.Month() != time.Month(m.Month) {
				return nil, fmt.Errorf("day %d does not exist in month %d", day, m.Month)
			}

			cal.Days = append(cal.Days, Day{Date: date, Year: doc.Year, Month: m.Month, Day: day})
		}
	}

	return cal, nil
}

// ForMonth returns the days of one month.
func (c *Calendar) ForMonth(month int) []Day {
	var out []Day
	for _, d := range c.Days {
		if d.Month == month {
			out = append(out, d)
		}
	}
	return out
}

// Contains reports whether date is a listed non-working day.
func (c *Calendar) Contains(date time.Time) bool {
	for _, d := range c.Days {
		if d.Date.Year() == date.Year() &&
			d.Date.Month() == date.Month() &&
			d.Date.Day() == date.Day() {
			return true
		}
	}
	return false
}
