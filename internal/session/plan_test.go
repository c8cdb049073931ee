package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePlanBreakTiers(t *testing.T) {
	cases := []struct {
		duration   int
		interval   int
		count      int
		length     int
		milestones int
	}{
		{1, 1, 0, 0, 1},
		{30, 30, 0, 0, 1},
		{31, 30, 1, 5, 1},
		{45, 30, 1, 5, 1},
		{60, 30, 2, 5, 2},
		{61, 40, 1, 7, 2},
		{120, 40, 3, 7, 4},
		{121, 45, 2, 10, 4},
		{180, 45, 4, 10, 6},
		{181, 60, 3, 15, 6},
		{240, 60, 4, 15, 8},
	}
	for _, tc := range cases {
		p := ComputePlan(tc.duration)
		assert.Equal(t, tc.interval, p.BreakIntervalMin, "duration %d: interval", tc.duration)
		assert.Equal(t, tc.count, p.BreakCount, "duration %d: count", tc.duration)
		assert.Equal(t, tc.length, p.BreakLengthMin, "duration %d: length", tc.duration)
		assert.Len(t, p.WaterMilestones, tc.milestones, "duration %d: milestones", tc.duration)
	}
}

func TestComputePlan75(t *testing.T) {
	p := ComputePlan(75)
	assert.Equal(t, 40, p.BreakIntervalMin)
	assert.Equal(t, 1, p.BreakCount)
	assert.Equal(t, 7, p.BreakLengthMin)
	assert.Equal(t, []int{1800, 3600}, p.WaterMilestones)
	assert.Equal(t, 250, p.WaterML)
	assert.Equal(t, 500, p.WaterTotalML)
}

func TestComputePlanDeterministic(t *testing.T) {
	for _, d := range []int{1, 30, 75, 200} {
		assert.Equal(t, ComputePlan(d), ComputePlan(d))
	}
}

func TestComputePlanCoercesDuration(t *testing.T) {
	assert.Equal(t, ComputePlan(1), ComputePlan(0))
	assert.Equal(t, ComputePlan(1), ComputePlan(-10))
}

func TestMilestonesStrictlyIncreasingWithinCadence(t *testing.T) {
	for d := 1; d <= 400; d++ {
		p := ComputePlan(d)
		require.NotEmpty(t, p.WaterMilestones, "duration %d", d)
		prev := 0
		for _, m := range p.WaterMilestones {
			require.Greater(t, m, prev, "duration %d", d)
			require.Equal(t, prev+1800, m, "duration %d: 30-minute spacing", d)
			prev = m
		}
		require.Equal(t, len(p.WaterMilestones)*250, p.WaterTotalML, "duration %d", d)
	}
}
