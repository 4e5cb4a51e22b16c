package spec

const (
	// MinimumSlotsPerEpoch is the length of the first warmup epoch.
	MinimumSlotsPerEpoch = 32

	// DefaultEpochDurationDays is used whenever an epoch duration cannot be measured.
	DefaultEpochDurationDays = 3.0

	// MaxEpochLookback is the number of epochs, current included, averaged into the staking APY.
	MaxEpochLookback = 5
)
