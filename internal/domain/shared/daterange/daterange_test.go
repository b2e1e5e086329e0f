package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, time.April, d, 0, 0, 0, 0, time.UTC)
}

func TestNewRejectsEmptyAndInverted(t *testing.T) {
	_, err := New(day(10), day(10))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(day(12), day(10))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, day(10))
	assert.ErrorIs(t, err, ErrInvalidRange)

	dr, err := New(day(10), day(12))
	require.NoError(t, err)
	assert.Equal(t, 2, dr.Nights())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := Must(day(24), day(28))

	cases := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"inside", Must(day(25), day(26)), true},
		{"straddles start", Must(day(22), day(25)), true},
		{"straddles end", Must(day(26), day(30)), true},
		{"covers", Must(day(20), day(30)), true},
		{"touches end", Must(day(28), day(30)), false},
		{"touches start", Must(day(20), day(24)), false},
		{"disjoint", Must(day(1), day(3)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base))
		})
	}
}

func TestContainsTime(t *testing.T) {
	dr := Must(day(24), day(28))
	assert.True(t, dr.ContainsTime(day(24)))
	assert.True(t, dr.ContainsTime(day(27).Add(23*time.Hour)))
	assert.False(t, dr.ContainsTime(day(28)))
	assert.False(t, dr.ContainsTime(day(23)))
}
