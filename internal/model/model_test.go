package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentWeek(t *testing.T) {
	day := func(s string) time.Time {
		tm, err := time.Parse(DateLayout, s)
		require.NoError(t, err)
		return tm.Add(10 * time.Hour)
	}

	tests := []struct {
		name  string
		start string
		weeks int
		now   time.Time
		want  int
	}{
		{"before start", "2024-02-10", 13, day("2024-02-01"), 0},
		{"start day", "2024-02-01", 13, day("2024-02-01"), 1},
		{"day seven", "2024-02-01", 13, day("2024-02-08"), 1},
		{"day eight", "2024-02-01", 13, day("2024-02-09"), 2},
		{"clamped to weeks", "2024-01-01", 4, day("2024-12-01"), 4},
		{"bad start", "01/02/2024", 13, day("2024-02-01"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentWeek(tt.start, tt.weeks, tt.now))
		})
	}
}

func TestNormalizeEmitsEmptyCollections(t *testing.T) {
	c := Course{ID: "c1", Name: "7A", Students: []Student{{ID: "s1", Name: "Ana"}}}
	c.Normalize()

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"subjects":[]`)
	assert.Contains(t, string(raw), `"attendance":{}`)
	assert.Contains(t, string(raw), `"grades":{}`)
	assert.NotContains(t, string(raw), "null")
}

func TestCloneIsDeep(t *testing.T) {
	c := Course{ID: "c1", Students: []Student{{ID: "s1", Attendance: map[string]bool{"2024-03-01": true}}}}
	cp := c.Clone()
	cp.Students[0].Attendance["2024-03-01"] = false
	cp.Students[0].Name = "changed"

	assert.True(t, c.Students[0].Attendance["2024-03-01"])
	assert.Empty(t, c.Students[0].Name)
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2024-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)

	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", FormatDate(d))
	assert.True(t, ValidDate("2024-01-05"))
	assert.False(t, ValidDate("2024-1-5"))
}
