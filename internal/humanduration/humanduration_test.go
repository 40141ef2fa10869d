package humanduration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleTokens(t *testing.T) {
	cases := map[string]Period{
		"1M":    {months: 1},
		"1h":    {hours: 1},
		"30d":   {days: 30},
		"500ms": {milliseconds: 500},
	}
	for s, want := range cases {
		got, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
}

func TestParseSignedAndMultiToken(t *testing.T) {
	p, err := Parse("-1y6M")
	require.NoError(t, err)
	assert.True(t, p.negative)
	assert.Equal(t, 1, p.years)
	assert.Equal(t, 6, p.months)

	p, err = Parse("+2d12h")
	require.NoError(t, err)
	assert.False(t, p.negative)
	assert.Equal(t, 2, p.days)
	assert.Equal(t, 12, p.hours)
}

func TestParseCaseSensitiveMonthVsMinute(t *testing.T) {
	months, err := Parse("1M")
	require.NoError(t, err)
	minutes, err := Parse("1m")
	require.NoError(t, err)
	assert.Equal(t, 1, months.months)
	assert.Equal(t, 0, months.minutes)
	assert.Equal(t, 1, minutes.minutes)
	assert.Equal(t, 0, minutes.months)
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "-", "abc", "1x", "1"} {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}
}

func TestCutoffGoesBackInTimeForPositivePeriod(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	p, err := Parse("30d")
	require.NoError(t, err)
	cutoff := p.Cutoff(now)
	assert.True(t, cutoff.Before(now))
	assert.Equal(t, now.AddDate(0, 0, -30), cutoff)
}

func TestCutoffWithSecondsAndMilliseconds(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	p, err := Parse("1s")
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Second), p.Cutoff(now))
}
