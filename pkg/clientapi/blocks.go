package clientapi

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
)

func (s *APIClient) GetBlocks(ctx context.Context, start, endInclusive spec.Slot) ([]spec.Slot, error) {
	if endInclusive < start {
		return nil, errors.Errorf("invalid block range %d:%d", start, endInclusive)
	}
	var slots []spec.Slot
	if err := s.call(ctx, "getBlocks", &slots, uint64(start), uint64(endInclusive), s.withCommitment(nil)); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *APIClient) GetBlocksWithLimit(ctx context.Context, start spec.Slot, limit uint64) ([]spec.Slot, error) {
	var slots []spec.Slot
	if err := s.call(ctx, "getBlocksWithLimit", &slots, uint64(start), limit, s.withCommitment(nil)); err != nil {
		return nil, err
	}
	return slots, nil
}

type blockReward struct {
	Pubkey      string  `json:"pubkey"`
	Lamports    int64   `json:"lamports"`
	PostBalance uint64  `json:"postBalance"`
	RewardType  *string `json:"rewardType"`
	Commission  *uint8  `json:"commission"`
}

type blockResponse struct {
	BlockTime *int64        `json:"blockTime"`
	Rewards   []blockReward `json:"rewards"`
}

// GetBlock requests a block without its transactions.
func (s *APIClient) GetBlock(ctx context.Context, slot spec.Slot, withRewards bool) (*spec.Block, error) {
	var resp *blockResponse
	err := s.call(ctx, "getBlock", &resp, uint64(slot), s.withCommitment(map[string]interface{}{
		"encoding":                       "json",
		"transactionDetails":             "none",
		"rewards":                        withRewards,
		"maxSupportedTransactionVersion": 0,
	}))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.Errorf("no block at slot %d", slot)
	}

	block := &spec.Block{
		Slot:      slot,
		BlockTime: resp.BlockTime,
		Rewards:   make([]spec.Reward, 0, len(resp.Rewards)),
	}
	for _, r := range resp.Rewards {
		kind := spec.RewardOther
		if r.RewardType != nil {
			kind = spec.ParseRewardType(*r.RewardType)
		}
		block.Rewards = append(block.Rewards, spec.Reward{
			Pubkey:      r.Pubkey,
			Lamports:    r.Lamports,
			PostBalance: r.PostBalance,
			Kind:        kind,
			Commission:  r.Commission,
		})
	}
	return block, nil
}
