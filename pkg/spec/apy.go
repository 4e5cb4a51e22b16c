package spec

import (
	"math"

	"github.com/migalabs/solana-exporter/pkg/utils"
)

// VoterCreditSample is the balance of a voter's stake before and after the
// staking reward of one epoch.
type VoterCreditSample struct {
	Voter           string `json:"voter"`
	Epoch           Epoch  `json:"epoch"`
	Balance         uint64 `json:"balance"`
	PreviousBalance uint64 `json:"previous_balance"`
}

type VoterApy struct {
	Voter      string
	CurrentApy float64
	AverageApy float64
}

// EpochApy annualizes the reward of one epoch, compounding once per epoch.
// durationDays is the length of the staking period the reward pays for.
func EpochApy(sample VoterCreditSample, durationDays float64) float64 {
	if sample.PreviousBalance == 0 || durationDays <= 0 {
		return 0
	}
	epochRate := (float64(sample.Balance) - float64(sample.PreviousBalance)) / float64(sample.PreviousBalance)
	epochsPerYear := utils.DaysPerYear / durationDays
	apr := epochRate * epochsPerYear
	return math.Pow(1+apr/epochsPerYear, epochsPerYear) - 1
}

// WeightedAverage returns sum(values*weights)/sum(weights), or 0 when the
// weights add up to nothing.
func WeightedAverage(values, weights []float64) float64 {
	var sum, total float64
	for i := range values {
		if i >= len(weights) {
			break
		}
		sum += values[i] * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// EpochDuration is the measured wall-clock length of a finished epoch.
type EpochDuration struct {
	Epoch Epoch   `json:"epoch"`
	Days  float64 `json:"days"`
}
