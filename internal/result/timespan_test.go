package result_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/kustoconn/internal/result"
)

func TestParseTimespan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00:00", 0},
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"-00:00:01", -time.Second},
		{"1.00:00:00", 24 * time.Hour},
		{"25:00:00", 25 * time.Hour},
		{"00:00:00.1", 100 * time.Millisecond},
		{"00:00:00.099", 99 * time.Millisecond},
		{"00:00:00.0000001", 100 * time.Nanosecond},
		{"2.03:04:05.6789012", 51*time.Hour + 4*time.Minute + 5*time.Second + 678901200*time.Nanosecond},
		{"106751.23:47:16.8547758", 9223372036854775800},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := result.ParseTimespan(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimespan_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"", "-", "1:2", "00:60:00", "00:00:60", "1.24:00:00", "00:00:00.",
		"00:00:00.12345678", "ab:00:00", "+01:00:00", "106752.00:00:00", "1..00:00:00",
	} {
		_, err := result.ParseTimespan(in)
		assert.Error(t, err, in)
	}
}

func TestFormatTimespan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{50 * time.Nanosecond, "00:00:00"},
		{time.Second, "00:00:01"},
		{-time.Second, "-00:00:01"},
		{26*time.Hour + 3*time.Minute + 4*time.Second + 5*time.Millisecond, "1.02:03:04.0050000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, result.FormatTimespan(tt.in))
	}

	for _, d := range []time.Duration{time.Hour, -90 * time.Minute, 51*time.Hour + 678901200*time.Nanosecond} {
		back, err := result.ParseTimespan(result.FormatTimespan(d))
		require.NoError(t, err)
		assert.Equal(t, d, back)
	}
}

func TestParseDateTime(t *testing.T) {
	t.Parallel()

	got, err := result.ParseDateTime("2021-01-02T03:04:05.1234567Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 2, 3, 4, 5, 123456700, time.UTC), got)

	got, err = result.ParseDateTime("2021-01-02T05:04:05+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC), got)

	_, err = result.ParseDateTime("yesterday")
	assert.Error(t, err)
}
