package conditions

import (
	"cortez.fish/bite-pipeline/internal/envelope"
	"cortez.fish/bite-pipeline/internal/stats"
)

const (
	LabelGo      = "Go"
	LabelCaution = "Caution"
	LabelNoGo    = "No-Go"
)

// Penalties records how much each rule subtracted from the day score.
type Penalties struct {
	Wave    float64
	Swell   float64
	Current float64
	SST     float64
}

type GoNoGo struct {
	Score     float64
	Label     string
	Penalties Penalties
}

// ComputeGoNoGo scores a fishing day from 100 down. Wave height p90 above
// 2.4m is the dominant penalty; short swell period, strong current, and sea
// surface temperature outside 72..84F each shave a smaller slice. Scores
// below 50 are No-Go, below 70 Caution.
func ComputeGoNoGo(inputs envelope.RuleInputs) GoNoGo {
	var p Penalties

	switch {
	case inputs.WaveHeightP90M > 2.4:
		p.Wave = 40
	case inputs.WaveHeightP90M > 1.8:
		p.Wave = 20
	}
	if inputs.SwellPeriodMedianS < 8 {
		p.Swell = 10
	}
	if inputs.CurrentVelocityMedianMS > 1.2 {
		p.Current = 15
	}
	if inputs.SSTMedianF < 72 || inputs.SSTMedianF > 84 {
		p.SST = 10
	}

	score := stats.Clamp(100-p.Wave-p.Swell-p.Current-p.SST, 0, 100)

	label := LabelGo
	switch {
	case score < 50:
		label = LabelNoGo
	case score < 70:
		label = LabelCaution
	}

	return GoNoGo{Score: score, Label: label, Penalties: p}
}
