/* schedule_test.go
 * Contains unit tests for schedule.go and names.go functions
 */

package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 14, 12, 3, 10, 0, time.UTC)

func TestClockDeadlines(t *testing.T) {
	assert.Equal(t, base.Add(28*24*time.Hour), ClockDeadline(base))
	assert.Equal(t, base.Add(14*24*time.Hour), ExtendedDeadline(base))
}

func TestTimerDate_Floor(t *testing.T) {
	assert.Equal(t, base.Add(5*time.Second), TimerDate(base.Add(-time.Hour), base))
	assert.Equal(t, base.Add(5*time.Second), TimerDate(base, base))
	assert.Equal(t, base.Add(time.Hour), TimerDate(base.Add(time.Hour), base))
}

func TestNotificationDates(t *testing.T) {
	assert.Equal(t, base.Add(-30*time.Minute), StartingNotificationDate(base))
	assert.Equal(t, base.Add(time.Hour), MissedNotificationDate(base))
}

func TestRoundUpToFiveMinutes(t *testing.T) {
	assert.Equal(t, time.Date(2026, 10, 14, 12, 5, 0, 0, time.UTC), RoundUpToFiveMinutes(base))

	exact := time.Date(2026, 10, 14, 12, 10, 0, 0, time.UTC)
	assert.Equal(t, exact, RoundUpToFiveMinutes(exact))
}

func TestFormatInZone(t *testing.T) {
	assert.Equal(t, "Wed Oct 14 2026 12:03 PM UTC", FormatInZone(base, ""))
	assert.Equal(t, "Wed Oct 14 2026 12:03 PM UTC", FormatInZone(base, "Not/AZone"))
	assert.Contains(t, FormatInZone(base, "America/New_York"), "8:03 AM")
}

// region ParseMatchTime tests

func TestParseMatchTime_Explicit(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got, err := ParseMatchTime("10/20/2026 8:00 PM", base, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), got)
}

func TestParseMatchTime_Relative(t *testing.T) {
	got, err := ParseMatchTime("tomorrow at 8pm", base, time.UTC)
	require.NoError(t, err)
	assert.True(t, got.After(base))
}

func TestParseMatchTime_Past(t *testing.T) {
	_, err := ParseMatchTime("10/01/2026 8:00 PM", base, time.UTC)
	assert.Error(t, err)
}

func TestParseMatchTime_Garbage(t *testing.T) {
	_, err := ParseMatchTime("", base, time.UTC)
	assert.Error(t, err)

	_, err = ParseMatchTime("whenever works", base, time.UTC)
	assert.Error(t, err)
}

// endregion

// region MatchName tests

func TestMatchName_ExactAndCase(t *testing.T) {
	valid := []string{"Vault", "Fissure", "Burning Indika"}
	name, ok := MatchName("vault", valid)
	assert.True(t, ok)
	assert.Equal(t, "Vault", name)

	name, ok = MatchName("BURNING INDIKA", valid)
	assert.True(t, ok)
	assert.Equal(t, "Burning Indika", name)
}

func TestMatchName_Fuzzy(t *testing.T) {
	name, ok := MatchName("indika", []string{"Vault", "Burning Indika"})
	assert.True(t, ok)
	assert.Equal(t, "Burning Indika", name)
}

func TestMatchNames_Invalid(t *testing.T) {
	matched, invalid := MatchNames([]string{"Vault", "zzzz"}, []string{"Vault", "Fissure"})
	assert.Equal(t, []string{"Vault"}, matched)
	assert.Equal(t, []string{"zzzz"}, invalid)
}

func TestCleanQuotes(t *testing.T) {
	assert.Equal(t, "Burning Indika", CleanQuotes("“Burning Indika”"))
	assert.Equal(t, "Vault", CleanQuotes(`"Vault"`))
}

// endregion
