// Package analytics derives dashboard metrics from stored rows. It has no
// write path: everything here is a pure transformation over Storage Adapter
// reads.
package analytics

import (
	"quizpulse/api/models"
	"quizpulse/api/utils"
)

// FunnelStepMetrics is a funnel row enriched with drop-off and conversion
// percentages.
type FunnelStepMetrics struct {
	models.FunnelStep
	DropoffRate    float64 `json:"dropoff_rate"`
	ConversionRate float64 `json:"conversion_rate"`
}

// BuildFunnel computes per-step drop-off and conversion rates from the raw
// funnel counts, which must already be ordered ascending by step number.
//
// The first step anchors the funnel: its drop-off is 0 and its conversion is
// 100. When the first step has zero visitors, every conversion rate is 0.
func BuildFunnel(steps []models.FunnelStep) []FunnelStepMetrics {
	results := make([]FunnelStepMetrics, 0, len(steps))
	for i, step := range steps {
		metrics := FunnelStepMetrics{FunnelStep: step}

		if i == 0 {
			metrics.ConversionRate = 100
		} else {
			prev := steps[i-1]
			if prev.Visitors > 0 {
				metrics.DropoffRate = utils.Round2(float64(prev.Visitors-step.Visitors) / float64(prev.Visitors) * 100)
			}
			if first := steps[0].Visitors; first > 0 {
				metrics.ConversionRate = utils.Round2(float64(step.Visitors) / float64(first) * 100)
			}
		}
		if steps[0].Visitors == 0 {
			metrics.ConversionRate = 0
		}

		results = append(results, metrics)
	}
	return results
}

// GroupAnswersByStep organizes answer stats into step buckets, preserving the
// count-descending order the store returns within each step.
func GroupAnswersByStep(stats []models.AnswerStat) map[string][]models.AnswerStat {
	grouped := make(map[string][]models.AnswerStat)
	for _, stat := range stats {
		grouped[stat.StepName] = append(grouped[stat.StepName], stat)
	}
	return grouped
}
