package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{RouteID: "R142", RouteShortName: "142", StopID: 1, DayOfWeek: 0, HourOfDay: 8, DelayMinutes: 4},
		{RouteID: "R142", RouteShortName: "142", StopID: 1, DayOfWeek: 0, HourOfDay: 8, DelayMinutes: 6},
		{RouteID: "R142", RouteShortName: "142", StopID: 1, DayOfWeek: 2, HourOfDay: 17, DelayMinutes: 12},
		{RouteID: "R142", RouteShortName: "142", StopID: 2, DayOfWeek: 3, HourOfDay: 9, DelayMinutes: 2},
		{RouteID: "R500", RouteShortName: "500D", StopID: 7, DayOfWeek: 1, HourOfDay: 6, DelayMinutes: -10},
	}
}

func TestNewTableRejectsEmpty(t *testing.T) {
	_, err := NewTable(nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestLookupTiers(t *testing.T) {
	table, err := NewTable(sampleRecords())
	require.NoError(t, err)

	tests := []struct {
		name     string
		routeKey string
		stopID   int
		dow      int
		hour     int
		expected float64
		tier     Tier
	}{
		{"exact group", "142", 1, 0, 8, 5, TierExact},
		{"exact group by id", "R142", 1, 0, 8, 5, TierExact},
		{"stop group", "142", 1, 6, 23, (4 + 6 + 12) / 3.0, TierStop},
		{"route group", "142", 99, 0, 8, (4 + 6 + 12 + 2) / 4.0, TierRoute},
		{"unknown route", "9999", 1, 0, 8, (4 + 6 + 12 + 2 - 10) / 5.0, TierGlobal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, tier := table.Lookup(tt.routeKey, tt.stopID, tt.dow, tt.hour)
			assert.InDelta(t, tt.expected, v, 1e-9)
			assert.Equal(t, tt.tier, tier)
			assert.InDelta(t, tt.expected, table.Estimate(tt.routeKey, tt.stopID, tt.dow, tt.hour), 1e-9)
		})
	}
}

func TestLookupClampsNegativeMeans(t *testing.T) {
	table, err := NewTable(sampleRecords())
	require.NoError(t, err)

	v, tier := table.Lookup("500D", 7, 1, 6)
	assert.Equal(t, TierExact, tier, "a populated group answers even when its mean is negative")
	assert.Equal(t, 0.0, v)

	table, err = NewTable([]Record{{RouteID: "A", RouteShortName: "A", StopID: 1, DelayMinutes: -3}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, table.Estimate("missing", 1, 0, 0))
	assert.Equal(t, -3.0, table.Stats().GlobalMean)
}

func TestZeroMeanDoesNotFallBack(t *testing.T) {
	table, err := NewTable([]Record{
		{RouteID: "A", RouteShortName: "A", StopID: 1, DayOfWeek: 0, HourOfDay: 8, DelayMinutes: 0},
		{RouteID: "A", RouteShortName: "A", StopID: 2, DayOfWeek: 0, HourOfDay: 8, DelayMinutes: 30},
	})
	require.NoError(t, err)

	v, tier := table.Lookup("A", 1, 0, 8)
	assert.Equal(t, TierExact, tier)
	assert.Equal(t, 0.0, v)
}

func TestRepresentativePrefersMostRecords(t *testing.T) {
	table, err := NewTable([]Record{
		{RouteID: "R10-up", RouteShortName: "10", StopID: 1, DelayMinutes: 1},
		{RouteID: "R10-down", RouteShortName: "10", StopID: 1, DelayMinutes: 9},
		{RouteID: "R10-down", RouteShortName: "10", StopID: 1, DelayMinutes: 9},
		{RouteID: "B", RouteShortName: "20", StopID: 1, DelayMinutes: 1},
		{RouteID: "A", RouteShortName: "20", StopID: 1, DelayMinutes: 3},
	})
	require.NoError(t, err)

	rk, ok := table.Representative("10")
	require.True(t, ok)
	assert.Equal(t, RouteKey{ID: "R10-down", ShortName: "10"}, rk)
	assert.InDelta(t, 9, table.Estimate("10", 1, 0, 0), 1e-9)

	rk, ok = table.Representative(" 20 ")
	require.True(t, ok)
	assert.Equal(t, RouteKey{ID: "A", ShortName: "20"}, rk, "ties go to the smallest pair")

	rk, ok = table.Representative("R10-up")
	require.True(t, ok)
	assert.Equal(t, "R10-up", rk.ID)

	_, ok = table.Representative("nope")
	assert.False(t, ok)
}

func TestStatsAndRouteKeys(t *testing.T) {
	table, err := NewTable(sampleRecords())
	require.NoError(t, err)

	stats := table.Stats()
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 2, stats.Routes)
	assert.Equal(t, 3, stats.StopGroups)
	assert.Equal(t, 4, stats.ExactGroups)
	assert.InDelta(t, 2.8, stats.GlobalMean, 1e-9)

	assert.Equal(t, []RouteKey{{ID: "R142", ShortName: "142"}, {ID: "R500", ShortName: "500D"}}, table.RouteKeys())
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "exact", TierExact.String())
	assert.Equal(t, "global", TierGlobal.String())
	assert.Equal(t, "tier(9)", Tier(9).String())
}
