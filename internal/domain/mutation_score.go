package domain

import m "twister.dev/pkg/twister/internal/model"

// MutationScore is the share of twists the suite killed. A run without
// twists scores 1.
func MutationScore(outcomes []m.TwistOutcome) float64 {
	if len(outcomes) == 0 {
		return 1.0
	}

	killed := 0

	for _, outcome := range outcomes {
		if outcome.Status == m.Killed {
			killed++
		}
	}

	return float64(killed) / float64(len(outcomes))
}
