package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTimeAcceptsISOForms(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-10-18T14:00:00Z", time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC)},
		{"2026-10-18T14:00:00.000Z", time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC)},
		{"2026-10-18T10:00:00-03:00", time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC)},
		{"2026-10-18T10:00-03:00", time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC)},
		{"2026-10-18T10:00:00", time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC)},
		{"2026-10-18T10:00", time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC)},
		{" 2026-10-18 10:00 ", time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDateTime(tc.in, saoPaulo)
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(tc.want), "%s parsed as %s", tc.in, got.UTC())
	}
}

func TestParseDateTimeRejectsFreeText(t *testing.T) {
	for _, in := range []string{"", "amanhã", "amanhã às 14h", "18/10/2026 10:00", "2026-13-40T10:00:00Z"} {
		_, err := ParseDateTime(in, saoPaulo)
		assert.ErrorIs(t, err, ErrInvalidDateTime, in)
	}
}

func TestParseDateTimeNilLocationIsUTC(t *testing.T) {
	got, err := ParseDateTime("2026-10-18T10:00:00", nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)))
}
