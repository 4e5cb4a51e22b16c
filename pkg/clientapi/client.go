package clientapi

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
)

// Client is the set of node queries the exporter relies on.
type Client interface {
	GetEpochInfo(ctx context.Context) (*spec.EpochInfo, error)
	GetEpochSchedule(ctx context.Context) (*spec.EpochSchedule, error)
	GetBlocks(ctx context.Context, start, endInclusive spec.Slot) ([]spec.Slot, error)
	GetBlocksWithLimit(ctx context.Context, start spec.Slot, limit uint64) ([]spec.Slot, error)
	GetBlock(ctx context.Context, slot spec.Slot, withRewards bool) (*spec.Block, error)
	GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*spec.StakeAccount, error)
	GetLeaderSchedule(ctx context.Context, slot spec.Slot) (map[string][]uint64, error)
	GetVoteAccounts(ctx context.Context) (*spec.VoteAccounts, error)
	GetClusterNodes(ctx context.Context) ([]spec.ClusterNode, error)
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

var _ Client = (*APIClient)(nil)
