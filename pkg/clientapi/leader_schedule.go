package clientapi

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
)

// GetLeaderSchedule returns the schedule of the epoch containing slot, as
// leader identity to slot indexes relative to the first slot of that epoch.
// A nil map means the node has no schedule for that epoch.
func (s *APIClient) GetLeaderSchedule(ctx context.Context, slot spec.Slot) (map[string][]uint64, error) {
	var schedule map[string][]uint64
	if err := s.call(ctx, "getLeaderSchedule", &schedule, uint64(slot), s.withCommitment(nil)); err != nil {
		return nil, err
	}
	return schedule, nil
}
