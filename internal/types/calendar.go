package types

import "time"

// Calendar exposes the business-day predicate and workday arithmetic used
// by the bond/future pricing layer. Grounded on the holiday-set-plus-weekend
// pattern in meenmo-molib/calendar/calendar.go, adapted to the markets this
// engine cares about (interbank and the Shanghai exchange) with an
// explicit working-weekend override list for long-holiday bridge days.
type Calendar string

const (
	CalendarIB  Calendar = "IB"
	CalendarSSE Calendar = "SSE"
)

// holidays and workingWeekends are keyed by "YYYY-MM-DD". They are compiled
// in rather than loaded from the intercontinental holiday database described
// in spec.md Non-goals, which is an external collaborator out of core scope.
var holidays = map[Calendar]map[string]struct{}{
	CalendarIB:  buildDateSet(cnHolidays2024, cnHolidays2025),
	CalendarSSE: buildDateSet(cnHolidays2024, cnHolidays2025),
}

var workingWeekends = map[Calendar]map[string]struct{}{
	CalendarIB:  buildDateSet(cnWorkingWeekends2024, cnWorkingWeekends2025),
	CalendarSSE: buildDateSet(cnWorkingWeekends2024, cnWorkingWeekends2025),
}

func buildDateSet(lists ...[]string) map[string]struct{} {
	m := map[string]struct{}{}
	for _, list := range lists {
		for _, d := range list {
			m[d] = struct{}{}
		}
	}
	return m
}

// cnHolidays2024/2025 and cnWorkingWeekends2024/2025 are a representative
// subset of the PRC public holiday calendar (Spring Festival, National Day,
// etc.) sufficient to exercise is_business_day/find_workday; a production
// deployment would source these from the holiday database described in
// spec.md Non-goals.
var cnHolidays2024 = []string{
	"2024-01-01",
	"2024-02-10", "2024-02-11", "2024-02-12", "2024-02-13", "2024-02-14", "2024-02-15", "2024-02-16", "2024-02-17",
	"2024-04-04", "2024-04-05", "2024-04-06",
	"2024-05-01", "2024-05-02", "2024-05-03",
	"2024-06-10",
	"2024-09-15", "2024-09-16", "2024-09-17",
	"2024-10-01", "2024-10-02", "2024-10-03", "2024-10-04", "2024-10-07",
}

var cnWorkingWeekends2024 = []string{
	"2024-02-04", "2024-02-18",
	"2024-04-07",
	"2024-04-28", "2024-05-11",
	"2024-09-14", "2024-09-29",
	"2024-10-12",
}

var cnHolidays2025 = []string{
	"2025-01-01",
	"2025-01-28", "2025-01-29", "2025-01-30", "2025-01-31", "2025-02-03", "2025-02-04",
	"2025-04-04",
	"2025-05-01", "2025-05-02", "2025-05-05",
	"2025-05-31", "2025-06-02",
	"2025-10-01", "2025-10-02", "2025-10-03", "2025-10-06", "2025-10-07", "2025-10-08",
}

var cnWorkingWeekends2025 = []string{
	"2025-01-26",
	"2025-02-08",
	"2025-04-27",
	"2025-09-28",
	"2025-10-11",
}

func dateKey(d Date) string {
	return d.String()
}

// IsBusinessDay reports whether d is a trading day on the given market.
func (c Calendar) IsBusinessDay(d Date) bool {
	weekday := d.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		if _, ok := workingWeekends[c][dateKey(d)]; ok {
			return true
		}
		return false
	}
	if _, ok := holidays[c][dateKey(d)]; ok {
		return false
	}
	return true
}

// FindWorkday walks |offset| business days forward (offset > 0) or
// backward (offset < 0) from d. offset == 0 returns d itself if it is
// already a business day, otherwise the next business day forward.
func (c Calendar) FindWorkday(d Date, offset int) Date {
	if offset == 0 {
		for !c.IsBusinessDay(d) {
			d = d.AddDate(0, 0, 1)
		}
		return d
	}

	step := 1
	remaining := offset
	if offset < 0 {
		step = -1
		remaining = -offset
	}

	cur := d
	for remaining > 0 {
		cur = cur.AddDate(0, 0, step)
		if c.IsBusinessDay(cur) {
			remaining--
		}
	}
	return cur
}
