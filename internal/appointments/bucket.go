package appointments

import (
	"fmt"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// Buckets splits appointments by calendar day in the viewer's time zone.
type Buckets struct {
	Today    []Appointment `json:"today"`
	Upcoming []Appointment `json:"upcoming"`
	Past     []Appointment `json:"past"`
}

// LoadLocation resolves an IANA zone name. Empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeZone, name)
	}
	return loc, nil
}

// LocalDate is the YYYY-MM-DD of t as seen in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// Bucket compares local calendar dates, not instants: an appointment earlier
// today is still Today. Today and Upcoming run earliest first, Past latest first.
func Bucket(appts []Appointment, loc *time.Location, now time.Time) Buckets {
	if loc == nil {
		loc = time.UTC
	}
	today := LocalDate(now, loc)

	b := Buckets{Today: []Appointment{}, Upcoming: []Appointment{}, Past: []Appointment{}}
	for _, a := range appts {
		// Layout is fixed-width, so string order is date order.
		switch d := LocalDate(a.StartsAt, loc); {
		case d == today:
			b.Today = append(b.Today, a)
		case d > today:
			b.Upcoming = append(b.Upcoming, a)
		default:
			b.Past = append(b.Past, a)
		}
	}
	sortByStart(b.Today, false)
	sortByStart(b.Upcoming, false)
	sortByStart(b.Past, true)
	return b
}

// GroupByLocalDate keys appointments by local date, each day earliest first.
func GroupByLocalDate(appts []Appointment, loc *time.Location) map[string][]Appointment {
	if loc == nil {
		loc = time.UTC
	}
	out := map[string][]Appointment{}
	for _, a := range appts {
		d := LocalDate(a.StartsAt, loc)
		out[d] = append(out[d], a)
	}
	for _, day := range out {
		sortByStart(day, false)
	}
	return out
}

func sortByStart(appts []Appointment, desc bool) {
	sort.SliceStable(appts, func(i, j int) bool {
		if desc {
			return appts[i].StartsAt.After(appts[j].StartsAt)
		}
		return appts[i].StartsAt.Before(appts[j].StartsAt)
	})
}
