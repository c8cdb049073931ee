package session

// Hydration cadence: one 250 ml reminder every 30 minutes, at least one
// per session.
const (
	waterIntervalMin    = 30
	waterPerMilestoneML = 250
)

// Plan is the immutable break/hydration schedule for one session,
// derived once from the requested duration.
type Plan struct {
	DurationMin      int   `json:"duration_min"`
	BreakIntervalMin int   `json:"break_interval_min"`
	BreakCount       int   `json:"break_count"`
	BreakLengthMin   int   `json:"break_length_min"`
	WaterMilestones  []int `json:"water_milestones"` // seconds from session start
	WaterML          int   `json:"water_ml"`
	WaterTotalML     int   `json:"water_total_ml"`
}

// ComputePlan maps a requested duration (minutes) to a Plan. Pure and
// deterministic; durations below one minute are coerced to one.
//
// Break cadence is a step function of the duration; hydration milestones
// land every 30 minutes and are derived from duration/30 alone, without
// clamping against the session end.
func ComputePlan(durationMin int) Plan {
	d := durationMin
	if d < 1 {
		d = 1
	}

	var interval, count, length int
	switch {
	case d <= 30:
		interval, count, length = d, 0, 0
	case d <= 60:
		interval, count, length = 30, d/30, 5
	case d <= 120:
		interval, count, length = 40, d/40, 7
	case d <= 180:
		interval, count, length = 45, d/45, 10
	default:
		interval, count, length = 60, d/60, 15
	}

	milestoneCount := d / waterIntervalMin
	if milestoneCount < 1 {
		milestoneCount = 1
	}
	milestones := make([]int, milestoneCount)
	for i := range milestones {
		milestones[i] = (i + 1) * waterIntervalMin * 60
	}

	return Plan{
		DurationMin:      d,
		BreakIntervalMin: interval,
		BreakCount:       count,
		BreakLengthMin:   length,
		WaterMilestones:  milestones,
		WaterML:          waterPerMilestoneML,
		WaterTotalML:     milestoneCount * waterPerMilestoneML,
	}
}
