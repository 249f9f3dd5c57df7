package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "07:30", want: TimeOfDay{Hour: 7, Minute: 30}},
		{in: "07:30:59", want: TimeOfDay{Hour: 7, Minute: 30}},
		{in: "23:59", want: TimeOfDay{Hour: 23, Minute: 59}},
		{in: "24:00", wantErr: true},
		{in: "7.30", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDay_StringAndMinutes(t *testing.T) {
	tod := TimeOfDay{Hour: 7, Minute: 5}
	assert.Equal(t, "07:05", tod.String())
	assert.Equal(t, 425, tod.Minutes())
}

func TestISOWeekday(t *testing.T) {
	sunday := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	monday := sunday.AddDate(0, 0, 1)
	assert.Equal(t, 7, ISOWeekday(sunday))
	assert.Equal(t, 1, ISOWeekday(monday))
}

func TestCivilDay_UsesTenantZone(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// 18:30 UTC on March 2 is already 01:30 on March 3 in Jakarta.
	instant := time.Date(2025, 3, 2, 18, 30, 0, 0, time.UTC)
	day := CivilDay(instant, jakarta)

	assert.Equal(t, 2025, day.Year())
	assert.Equal(t, time.March, day.Month())
	assert.Equal(t, 3, day.Day())
	assert.Equal(t, jakarta, day.Location())
	assert.Equal(t, 1, ISOWeekday(day))
}

func TestClockOf(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	instant := time.Date(2025, 3, 3, 0, 29, 0, 0, time.UTC)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 29}, ClockOf(instant.In(jakarta)))
}

func TestTimeOfDay_On(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, jakarta)
	at := TimeOfDay{Hour: 7, Minute: 30}.On(day)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 30, 0, 0, time.UTC), at.UTC())
}
