package biztime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKeyFollowsBusinessTimezone(t *testing.T) {
	require.NoError(t, Init("America/New_York"))
	t.Cleanup(func() { _ = Init("UTC") })

	// 03:00 UTC is still the previous evening in New York.
	ts := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-09", DayKey(ts))
	assert.Equal(t, time.Date(2026, 3, 9, 4, 0, 0, 0, time.UTC), StartOfDayUTC(ts))
	assert.Equal(t, time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC), StartOfNextDayUTC(ts))
}

func TestInitRejectsUnknownZone(t *testing.T) {
	assert.Error(t, Init("Mars/Olympus_Mons"))
	assert.Equal(t, "UTC", Location().String())
}

func TestSetNowFunc(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	restore := SetNowFunc(func() time.Time { return fixed })
	defer restore()

	assert.Equal(t, fixed, NowUTC())
	assert.Equal(t, "2026-01-02", DayKey(NowUTC()))
}
