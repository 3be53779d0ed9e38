package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.True(t, ParseTimeDefault("", def).Equal(def))
	assert.True(t, ParseTimeDefault("garbage", def).Equal(def))
}

func TestPeriodDuration(t *testing.T) {
	d, ok := PeriodDuration("15m")
	require.True(t, ok)
	assert.Equal(t, 15*time.Minute, d)

	_, ok = PeriodDuration("2w")
	assert.False(t, ok)
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2024, 10, 10, 10, 7, 42, 0, time.UTC)
	to := time.Date(2024, 10, 10, 11, 3, 5, 0, time.UTC)

	af, at := AlignFromTo(from, to, "15m")
	assert.Equal(t, time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC), af)
	assert.Equal(t, time.Date(2024, 10, 10, 11, 0, 0, 0, time.UTC), at)

	af, _ = AlignFromTo(from, to, "bogus")
	assert.Equal(t, time.Date(2024, 10, 10, 10, 7, 0, 0, time.UTC), af)
}
