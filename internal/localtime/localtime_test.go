package localtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInstantEastern(t *testing.T) {
	loc, err := ParseZone("America/New_York")
	require.NoError(t, err)

	date := time.Date(2024, 7, 6, 0, 0, 0, 0, time.UTC)
	got, err := ToInstant(date, "10:00", loc)
	require.NoError(t, err)

	// EDT is UTC-4 in July.
	assert.Equal(t, time.Date(2024, 7, 6, 14, 0, 0, 0, time.UTC), got.UTC())
}

func TestToInstantAcrossDSTBoundary(t *testing.T) {
	loc, err := ParseZone("America/New_York")
	require.NoError(t, err)

	// Nov 3 2024: clocks fall back, EST is UTC-5 after 02:00.
	date := time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC)
	got, err := ToInstant(date, "10:00:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 3, 15, 0, 0, 0, time.UTC), got.UTC())
}

func TestToInstantInvalid(t *testing.T) {
	loc := time.UTC
	_, err := ToInstant(time.Now(), "not-a-time", loc)
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = ToInstant(time.Now(), "10:00", nil)
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestToLocalRoundTrip(t *testing.T) {
	loc, err := ParseZone("America/New_York")
	require.NoError(t, err)

	instant := time.Date(2024, 7, 6, 14, 5, 0, 0, time.UTC)
	local := ToLocal(instant, loc)
	assert.Equal(t, 10, local.Hour())
	assert.Equal(t, 5, local.Minute())
	assert.True(t, instant.Equal(local))
}

func TestParseZoneUnknown(t *testing.T) {
	_, err := ParseZone("Mars/Olympus")
	assert.ErrorIs(t, err, ErrInvalidTime)
}
