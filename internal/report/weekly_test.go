package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekKey(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*60*60)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"wednesday", time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC), "2024-06-09"},
		{"sunday midnight", time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), "2024-06-09"},
		{"saturday last second", time.Date(2024, 6, 15, 23, 59, 59, 0, time.UTC), "2024-06-09"},
		{"sunday just before midnight", time.Date(2024, 6, 16, 23, 59, 59, 0, time.UTC), "2024-06-16"},
		{"offset converted to utc first", time.Date(2024, 6, 9, 1, 0, 0, 0, plus5), "2024-06-02"},
		{"across month boundary", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), "2024-02-25"},
		{"across year boundary", time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC), "2024-12-29"},
		{"epoch thursday", time.Unix(0, 0), "1969-12-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekKey(tt.at))
		})
	}
}

func TestWeekStart_IsUTCMidnightSunday(t *testing.T) {
	ws := WeekStart(time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC))

	assert.Equal(t, time.Sunday, ws.Weekday())
	assert.Equal(t, time.UTC, ws.Location())
	assert.Zero(t, ws.Hour())
	assert.Zero(t, ws.Minute())
}

func TestAggregate(t *testing.T) {
	type rec struct {
		at time.Time
		n  int
	}
	records := []rec{
		{time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), 1}, // week of 06-16
		{time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), 2},  // week of 06-02
		{time.Date(2024, 6, 19, 0, 0, 0, 0, time.UTC), 3}, // week of 06-16
		{time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), 4}, // week of 06-09
	}

	weeks := Aggregate(records,
		func(r rec) time.Time { return r.at },
		func(b *CountBucket, r rec) { b.Count += r.n },
	)

	require.Len(t, weeks, 3)
	assert.Equal(t, []Week[CountBucket]{
		{Key: "2024-06-02", Bucket: CountBucket{Count: 2}},
		{Key: "2024-06-09", Bucket: CountBucket{Count: 4}},
		{Key: "2024-06-16", Bucket: CountBucket{Count: 4}},
	}, weeks)
}

func TestAggregate_Empty(t *testing.T) {
	weeks := Aggregate[time.Time, CountBucket](nil,
		func(t time.Time) time.Time { return t },
		func(b *CountBucket, _ time.Time) { b.Count++ },
	)
	assert.NotNil(t, weeks)
	assert.Empty(t, weeks)
}
