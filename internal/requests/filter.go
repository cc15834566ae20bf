package requests

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a zone. The zero value means "unbounded".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(raw string) (Date, bool) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, false
	}
	return DateOf(t, time.UTC), true
}

func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

func (d Date) compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// Filter narrows the history listing. Search is matched case-insensitively
// against requester name, equipment model and equipment code; From and To
// bound the submission date inclusively.
type Filter struct {
	Search string
	From   Date
	To     Date
}

// Apply returns the rows matching f, keeping their order. Dates are compared
// in loc so that a request made at 23:30 local time belongs to that day.
func (f Filter) Apply(rows []Request, loc *time.Location) []Request {
	if loc == nil {
		loc = time.UTC
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Request, 0, len(rows))
	for _, row := range rows {
		if needle != "" && !matchesSearch(row, needle) {
			continue
		}
		day := DateOf(row.SubmittedAt, loc)
		if !f.From.IsZero() && day.compare(f.From) < 0 {
			continue
		}
		if !f.To.IsZero() && day.compare(f.To) > 0 {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matchesSearch(row Request, needle string) bool {
	for _, field := range []string{row.RequesterName, row.EquipmentModel, row.EquipmentCode} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// DateBounds returns the earliest and latest submission days in rows, used as
// the default range on the history screen.
func DateBounds(rows []Request, loc *time.Location) (Date, Date) {
	if len(rows) == 0 {
		return Date{}, Date{}
	}
	if loc == nil {
		loc = time.UTC
	}
	lo := DateOf(rows[0].SubmittedAt, loc)
	hi := lo
	for _, row := range rows[1:] {
		d := DateOf(row.SubmittedAt, loc)
		if d.compare(lo) < 0 {
			lo = d
		}
		if d.compare(hi) > 0 {
			hi = d
		}
	}
	return lo, hi
}

// Find returns the row with the given id.
func Find(rows []Request, id int64) (Request, bool) {
	for _, row := range rows {
		if row.ID == id {
			return row, true
		}
	}
	return Request{}, false
}
