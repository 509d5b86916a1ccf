/* schedule.go
 * Contains the time rules for challenges: clock deadlines, timer floors, notification offsets, rounding and the
 * natural language parser used for suggested match times
 */

package logic

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const (
	ClockWindow     = 28 * 24 * time.Hour
	ClockExtension  = 14 * 24 * time.Hour
	TimerFloor      = 5 * time.Second
	StartingWarning = 30 * time.Minute
	MissedAfter     = time.Hour
	startRounding   = 5 * time.Minute
)

// ClockDeadline is the deadline imposed by clocking a challenge at now
func ClockDeadline(now time.Time) time.Time {
	return now.Add(ClockWindow)
}

// ExtendedDeadline is the deadline after an admin extension at now
func ExtendedDeadline(now time.Time) time.Time {
	return now.Add(ClockExtension)
}

// TimerDate floors a requested fire time at now plus the timer floor
func TimerDate(date, now time.Time) time.Time {
	floor := now.Add(TimerFloor)
	if date.Before(floor) {
		return floor
	}
	return date
}

// StartingNotificationDate is when the "match starting soon" notice is due
func StartingNotificationDate(matchTime time.Time) time.Time {
	return matchTime.Add(-StartingWarning)
}

// MissedNotificationDate is when an unreported match counts as missed
func MissedNotificationDate(matchTime time.Time) time.Time {
	return matchTime.Add(MissedAfter)
}

// RoundUpToFiveMinutes returns the first five minute boundary at or after t
func RoundUpToFiveMinutes(t time.Time) time.Time {
	rounded := t.Truncate(startRounding)
	if rounded.Before(t) {
		rounded = rounded.Add(startRounding)
	}
	return rounded
}

// FormatInZone renders t for a reader in the named IANA zone, falling back to UTC
func FormatInZone(t time.Time, zone string) string {
	loc, err := time.LoadLocation(zone)
	if zone == "" || err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Mon Jan 2 2006 3:04 PM MST")
}

var compactTime = regexp.MustCompile(`(\d{1,2})(\d{2})(am|pm)`)

// ParseMatchTime parses a user supplied time such as "saturday 8pm" or "tomorrow at 9:30 pm" in loc
// Preconditions: Receives the raw input, the current time and the suggesting team's location
// Postconditions: Returns the parsed time in UTC, or an error if it cannot be understood or is in the past
func ParseMatchTime(input string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("no time given")
	}
	input = strings.ReplaceAll(input, "today ", "today at ")
	input = compactTime.ReplaceAllString(input, "$1:$2 $3")

	if parsed, err := time.ParseInLocation("1/2/2006 3:04 pm", input, loc); err == nil {
		return futureOnly(parsed, now)
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(input, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse time %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize time format: %s", input)
	}
	return futureOnly(r.Time.In(loc).Truncate(time.Minute), now)
}

func futureOnly(t, now time.Time) (time.Time, error) {
	if t.Before(now.Truncate(time.Minute)) {
		return time.Time{}, fmt.Errorf("match time must be in the future")
	}
	return t.UTC(), nil
}
