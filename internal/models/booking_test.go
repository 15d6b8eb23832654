package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name         string
		aStart, aEnd string
		bStart, bEnd string
		want         bool
	}{
		{"identical intervals", "08:00", "10:00", "08:00", "10:00", true},
		{"partial overlap", "08:00", "10:00", "09:00", "11:00", true},
		{"contained interval", "08:00", "12:00", "09:00", "10:00", true},
		{"touching endpoints", "08:00", "10:00", "10:00", "12:00", false},
		{"touching endpoints reversed", "10:00", "12:00", "08:00", "10:00", false},
		{"disjoint", "08:00", "09:00", "10:00", "11:00", false},
		{"one minute overlap", "08:00", "10:01", "10:00", "12:00", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
		})
	}
}

func TestValidClock(t *testing.T) {
	assert.True(t, ValidClock("00:00"))
	assert.True(t, ValidClock("23:59"))
	assert.True(t, ValidClock("08:30"))
	assert.False(t, ValidClock("24:00"))
	assert.False(t, ValidClock("8:30"))
	assert.False(t, ValidClock("08:60"))
	assert.False(t, ValidClock("8h30"))
	assert.False(t, ValidClock(""))
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2026-06-10"))
	assert.False(t, ValidDate("2026-13-10"))
	assert.False(t, ValidDate("10/06/2026"))
	assert.False(t, ValidDate("2026-6-1"))
	assert.False(t, ValidDate(""))
}
