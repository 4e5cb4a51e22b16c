package clientapi

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
)

type epochInfoResponse struct {
	AbsoluteSlot     uint64  `json:"absoluteSlot"`
	BlockHeight      uint64  `json:"blockHeight"`
	Epoch            uint64  `json:"epoch"`
	SlotIndex        uint64  `json:"slotIndex"`
	SlotsInEpoch     uint64  `json:"slotsInEpoch"`
	TransactionCount *uint64 `json:"transactionCount"`
}

func (s *APIClient) GetEpochInfo(ctx context.Context) (*spec.EpochInfo, error) {
	var resp epochInfoResponse
	if err := s.call(ctx, "getEpochInfo", &resp, s.withCommitment(nil)); err != nil {
		return nil, err
	}
	info := &spec.EpochInfo{
		Epoch:        spec.Epoch(resp.Epoch),
		SlotIndex:    resp.SlotIndex,
		SlotsInEpoch: resp.SlotsInEpoch,
		AbsoluteSlot: spec.Slot(resp.AbsoluteSlot),
		BlockHeight:  resp.BlockHeight,
	}
	if resp.TransactionCount != nil {
		info.TransactionCount = *resp.TransactionCount
	}
	return info, nil
}

type epochScheduleResponse struct {
	SlotsPerEpoch            uint64 `json:"slotsPerEpoch"`
	LeaderScheduleSlotOffset uint64 `json:"leaderScheduleSlotOffset"`
	Warmup                   bool   `json:"warmup"`
	FirstNormalEpoch         uint64 `json:"firstNormalEpoch"`
	FirstNormalSlot          uint64 `json:"firstNormalSlot"`
}

// GetEpochSchedule is fixed at genesis, so it is requested once and kept.
func (s *APIClient) GetEpochSchedule(ctx context.Context) (*spec.EpochSchedule, error) {
	s.scheduleMu.Lock()
	defer s.scheduleMu.Unlock()

	if s.schedule != nil {
		return s.schedule, nil
	}

	var resp epochScheduleResponse
	if err := s.call(ctx, "getEpochSchedule", &resp); err != nil {
		return nil, err
	}
	s.schedule = &spec.EpochSchedule{
		SlotsPerEpoch:            resp.SlotsPerEpoch,
		LeaderScheduleSlotOffset: resp.LeaderScheduleSlotOffset,
		Warmup:                   resp.Warmup,
		FirstNormalEpoch:         spec.Epoch(resp.FirstNormalEpoch),
		FirstNormalSlot:          spec.Slot(resp.FirstNormalSlot),
	}
	return s.schedule, nil
}
