package courtbot

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// ReferenceZone is the timezone every reservation instant is evaluated in.
const ReferenceZone = "America/Argentina/Buenos_Aires"

var referenceLocation = mustLoadLocation(ReferenceZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load timezone %s: %v", name, err))
	}
	return loc
}

// NowBA returns the current wall-clock time in the reference timezone.
func NowBA() time.Time {
	return time.Now().In(referenceLocation)
}

// dateLayouts are the accepted slot date forms: the ISO form the runtime
// resolves and the day-first form the prompts show to users.
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// ParseReservation combines a date and a time slot value into an instant
// in the reference timezone.
func ParseReservation(date, clock string) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout+" 15:04", date+" "+clock, referenceLocation)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable reservation datetime %q %q", date, clock)
}

// ReservationInFuture reports whether the date/time pair is strictly after
// now. The boundary instant fails, as does unparseable input.
func ReservationInFuture(date, clock string, now time.Time) bool {
	t, err := ParseReservation(date, clock)
	if err != nil {
		return false
	}
	return t.After(now)
}

// FormatDate renders a slot date as dd/mm/yyyy for user messages. Input
// that parses with neither layout is returned unchanged.
func FormatDate(date string) string {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, date, referenceLocation); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return date
}

// Timestamp renders a persistence timestamp in the reference timezone.
func Timestamp(t time.Time) string {
	return t.In(referenceLocation).Format("2006-01-02 15:04:05")
}
