// Package clientapitest provides an in-memory node for tests.
package clientapitest

import (
	"context"
	"sort"
	"sync"

	"github.com/migalabs/solana-exporter/pkg/clientapi"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
)

// FakeClient answers node queries from its exported fields and counts calls
// per method. Fields may be changed between calls while holding no lock, as
// long as the client is not used concurrently at that moment.
type FakeClient struct {
	mu sync.Mutex

	Info     *spec.EpochInfo
	Schedule spec.EpochSchedule
	// Blocks holds produced blocks; a missing slot was skipped.
	Blocks map[spec.Slot]*spec.Block
	// Accounts by pubkey; missing keys do not exist on chain.
	Accounts map[string]*spec.StakeAccount
	// LeaderSchedules by the first slot of the epoch.
	LeaderSchedules map[spec.Slot]map[string][]uint64
	VoteAccounts    *spec.VoteAccounts
	Nodes           []spec.ClusterNode
	Balances        map[string]uint64

	// Errors forces a method to fail.
	Errors map[string]error

	calls    map[string]int
	accounts [][]string
	ranges   [][2]spec.Slot
}

var _ clientapi.Client = (*FakeClient)(nil)

func NewFakeClient(schedule spec.EpochSchedule) *FakeClient {
	return &FakeClient{
		Schedule:        schedule,
		Blocks:          make(map[spec.Slot]*spec.Block),
		Accounts:        make(map[string]*spec.StakeAccount),
		LeaderSchedules: make(map[spec.Slot]map[string][]uint64),
		Balances:        make(map[string]uint64),
		Errors:          make(map[string]error),
		calls:           make(map[string]int),
	}
}

// AddBlock registers a produced block.
func (f *FakeClient) AddBlock(slot spec.Slot, blockTime *int64, rewards ...spec.Reward) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Blocks[slot] = &spec.Block{Slot: slot, BlockTime: blockTime, Rewards: rewards}
}

// Calls returns how many times method was requested.
func (f *FakeClient) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// AccountRequests returns the keys of every GetMultipleAccounts call.
func (f *FakeClient) AccountRequests() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.accounts...)
}

// BlockRanges returns the inclusive bounds of every GetBlocks call.
func (f *FakeClient) BlockRanges() [][2]spec.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]spec.Slot(nil), f.ranges...)
}

func (f *FakeClient) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.Errors[method]
}

func (f *FakeClient) sortedSlots() []spec.Slot {
	slots := make([]spec.Slot, 0, len(f.Blocks))
	for slot := range f.Blocks {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

func (f *FakeClient) GetEpochInfo(ctx context.Context) (*spec.EpochInfo, error) {
	if err := f.enter("getEpochInfo"); err != nil {
		return nil, err
	}
	if f.Info == nil {
		return nil, errors.New("no epoch info")
	}
	info := *f.Info
	return &info, nil
}

func (f *FakeClient) GetEpochSchedule(ctx context.Context) (*spec.EpochSchedule, error) {
	if err := f.enter("getEpochSchedule"); err != nil {
		return nil, err
	}
	schedule := f.Schedule
	return &schedule, nil
}

func (f *FakeClient) GetBlocks(ctx context.Context, start, endInclusive spec.Slot) ([]spec.Slot, error) {
	if err := f.enter("getBlocks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, [2]spec.Slot{start, endInclusive})

	out := make([]spec.Slot, 0)
	for _, slot := range f.sortedSlots() {
		if slot >= start && slot <= endInclusive {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (f *FakeClient) GetBlocksWithLimit(ctx context.Context, start spec.Slot, limit uint64) ([]spec.Slot, error) {
	if err := f.enter("getBlocksWithLimit"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]spec.Slot, 0, limit)
	for _, slot := range f.sortedSlots() {
		if uint64(len(out)) >= limit {
			break
		}
		if slot >= start {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (f *FakeClient) GetBlock(ctx context.Context, slot spec.Slot, withRewards bool) (*spec.Block, error) {
	if err := f.enter("getBlock"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	block, ok := f.Blocks[slot]
	if !ok {
		return nil, errors.Errorf("slot %d was skipped", slot)
	}
	out := &spec.Block{Slot: block.Slot, BlockTime: block.BlockTime}
	if withRewards {
		out.Rewards = append([]spec.Reward(nil), block.Rewards...)
	}
	return out, nil
}

func (f *FakeClient) GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*spec.StakeAccount, error) {
	if err := f.enter("getMultipleAccounts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, append([]string(nil), pubkeys...))

	out := make([]*spec.StakeAccount, len(pubkeys))
	for i, key := range pubkeys {
		if acc, ok := f.Accounts[key]; ok {
			cp := *acc
			out[i] = &cp
		}
	}
	return out, nil
}

func (f *FakeClient) GetLeaderSchedule(ctx context.Context, slot spec.Slot) (map[string][]uint64, error) {
	if err := f.enter("getLeaderSchedule"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LeaderSchedules[slot], nil
}

func (f *FakeClient) GetVoteAccounts(ctx context.Context) (*spec.VoteAccounts, error) {
	if err := f.enter("getVoteAccounts"); err != nil {
		return nil, err
	}
	if f.VoteAccounts == nil {
		return &spec.VoteAccounts{}, nil
	}
	return f.VoteAccounts, nil
}

func (f *FakeClient) GetClusterNodes(ctx context.Context) ([]spec.ClusterNode, error) {
	if err := f.enter("getClusterNodes"); err != nil {
		return nil, err
	}
	return f.Nodes, nil
}

func (f *FakeClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	if err := f.enter("getBalance"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Balances[pubkey], nil
}
