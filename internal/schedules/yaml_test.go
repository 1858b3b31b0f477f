package schedules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskYAML = `
schedules:
  - name: sat-early
    facilities: [9710, 9714]
    start: "10:00"
    duration_minutes: 30
    buffer_max: 5
    weekdays: [Sat]
    quantity: 1
    players: 4
  - name: sunday-late
    facilities: [9710]
    start: "15:30"
    duration_minutes: 45
    weekdays: [Sunday]
    date: "2024-07-07"
`

func TestParseYAML(t *testing.T) {
	ss, err := parseYAML([]byte(taskYAML))
	require.NoError(t, err)
	require.Len(t, ss, 2)

	assert.Equal(t, "sat-early", ss[0].ID)
	assert.Equal(t, []int{9710, 9714}, ss[0].FacilityIDs)
	assert.Equal(t, 30*time.Minute, ss[0].Duration)
	assert.Equal(t, 5, ss[0].BufferMax)
	assert.Equal(t, []time.Weekday{time.Saturday}, ss[0].Weekdays)
	assert.Equal(t, 1, ss[0].Quantity)
	assert.True(t, ss[0].Date.IsZero())

	// defaults applied
	assert.Equal(t, 1, ss[1].Quantity)
	assert.Equal(t, 4, ss[1].Players)
	assert.Equal(t, 18, ss[1].Holes)
	assert.Equal(t, []time.Weekday{time.Sunday}, ss[1].Weekdays)
	assert.Equal(t, time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC), ss[1].Date)
}

func TestParseYAMLRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":        `schedules: []`,
		"bad weekday":  "schedules:\n  - name: x\n    facilities: [1]\n    start: \"10:00\"\n    duration_minutes: 30\n    weekdays: [Caturday]\n",
		"bad date":     "schedules:\n  - name: x\n    facilities: [1]\n    start: \"10:00\"\n    duration_minutes: 30\n    date: \"07/06/2024\"\n",
		"no facility":  "schedules:\n  - name: x\n    start: \"10:00\"\n    duration_minutes: 30\n",
		"duplicate id": "schedules:\n  - name: x\n    facilities: [1]\n    start: \"10:00\"\n    duration_minutes: 30\n  - name: x\n    facilities: [2]\n    start: \"11:00\"\n    duration_minutes: 30\n",
	}
	for name, y := range cases {
		_, err := parseYAML([]byte(y))
		assert.Error(t, err, name)
	}
}

func TestWeekdayRoundTrip(t *testing.T) {
	ds := []time.Weekday{time.Saturday, time.Sunday}
	parsed, err := parseWeekdays(joinWeekdays(ds))
	require.NoError(t, err)
	assert.Equal(t, ds, parsed)
}
