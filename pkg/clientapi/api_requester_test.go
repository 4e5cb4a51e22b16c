package clientapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcHandlerFunc func(params []json.RawMessage) (interface{}, *RPCError)

// newTestNode serves canned json-rpc results per method and counts calls.
func newTestNode(t *testing.T, handlers map[string]rpcHandlerFunc) (*httptest.Server, map[string]int, *sync.Mutex) {
	calls := make(map[string]int)
	mu := &sync.Mutex{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		calls[req.Method]++
		mu.Unlock()

		handler, ok := handlers[req.Method]
		if !ok {
			http.Error(w, "unknown method", http.StatusNotFound)
			return
		}
		result, rpcErr := handler(req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, calls, mu
}

func newTestClient(t *testing.T, srv *httptest.Server) *APIClient {
	cli, err := NewAPIClient(context.Background(), srv.URL)
	require.NoError(t, err)
	return cli
}

func TestNewAPIClient(t *testing.T) {
	_, err := NewAPIClient(context.Background(), "localhost:8899")
	require.Error(t, err)

	_, err = NewAPIClient(context.Background(), "http://localhost:8899", WithCommitment("recent"))
	require.Error(t, err)

	cli, err := NewAPIClient(context.Background(), "http://localhost:8899", WithCommitment("finalized"), WithAccountWorkers(2))
	require.NoError(t, err)
	require.Equal(t, "finalized", cli.commitment)
	require.Equal(t, 2, cli.accountWorkers)
}

func TestGetEpochInfo(t *testing.T) {
	srv, _, _ := newTestNode(t, map[string]rpcHandlerFunc{
		"getEpochInfo": func(params []json.RawMessage) (interface{}, *RPCError) {
			return map[string]interface{}{
				"absoluteSlot":     166598,
				"blockHeight":      166500,
				"epoch":            27,
				"slotIndex":        2790,
				"slotsInEpoch":     8192,
				"transactionCount": 22661093,
			}, nil
		},
	})
	cli := newTestClient(t, srv)

	info, err := cli.GetEpochInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, spec.Epoch(27), info.Epoch)
	require.Equal(t, uint64(2790), info.SlotIndex)
	require.Equal(t, spec.Slot(166598), info.AbsoluteSlot)
	require.Equal(t, uint64(22661093), info.TransactionCount)
	require.Equal(t, spec.Slot(163808), info.FirstSlot())
}

func TestGetEpochScheduleIsMemoized(t *testing.T) {
	srv, calls, mu := newTestNode(t, map[string]rpcHandlerFunc{
		"getEpochSchedule": func(params []json.RawMessage) (interface{}, *RPCError) {
			return map[string]interface{}{
				"firstNormalEpoch":         8,
				"firstNormalSlot":          8160,
				"leaderScheduleSlotOffset": 8192,
				"slotsPerEpoch":            8192,
				"warmup":                   true,
			}, nil
		},
	})
	cli := newTestClient(t, srv)

	for i := 0; i < 3; i++ {
		schedule, err := cli.GetEpochSchedule(context.Background())
		require.NoError(t, err)
		require.Equal(t, spec.Slot(8160), schedule.FirstNormalSlot)
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls["getEpochSchedule"])
}

func TestGetBlockRewards(t *testing.T) {
	srv, _, _ := newTestNode(t, map[string]rpcHandlerFunc{
		"getBlock": func(params []json.RawMessage) (interface{}, *RPCError) {
			var cfg map[string]interface{}
			require.NoError(t, json.Unmarshal(params[1], &cfg))
			require.Equal(t, "none", cfg["transactionDetails"])
			require.Equal(t, true, cfg["rewards"])
			return map[string]interface{}{
				"blockTime": 1700000000,
				"rewards": []map[string]interface{}{
					{"pubkey": "Vote1", "lamports": 5000, "postBalance": 1005000, "rewardType": "Voting", "commission": 10},
					{"pubkey": "Stake1", "lamports": 700, "postBalance": 100700, "rewardType": "Staking"},
					{"pubkey": "Leader", "lamports": 10, "postBalance": 20, "rewardType": nil},
				},
			}, nil
		},
	})
	cli := newTestClient(t, srv)

	block, err := cli.GetBlock(context.Background(), 432000, true)
	require.NoError(t, err)
	require.NotNil(t, block.BlockTime)
	require.Equal(t, int64(1700000000), *block.BlockTime)
	require.Len(t, block.Rewards, 3)

	assert.Equal(t, spec.RewardVoting, block.Rewards[0].Kind)
	assert.Equal(t, uint64(1005000), block.Rewards[0].PostBalance)
	require.NotNil(t, block.Rewards[0].Commission)
	assert.Equal(t, uint8(10), *block.Rewards[0].Commission)
	assert.Equal(t, spec.RewardStaking, block.Rewards[1].Kind)
	assert.Equal(t, int64(700), block.Rewards[1].Lamports)
	assert.Equal(t, spec.RewardOther, block.Rewards[2].Kind)
}

func TestRPCErrorIsReturned(t *testing.T) {
	srv, _, _ := newTestNode(t, map[string]rpcHandlerFunc{
		"getBlock": func(params []json.RawMessage) (interface{}, *RPCError) {
			return nil, &RPCError{Code: -32007, Message: "Slot 10 was skipped"}
		},
	})
	cli := newTestClient(t, srv)

	_, err := cli.GetBlock(context.Background(), 10, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "-32007")

	// unknown methods come back as an http error
	_, err = cli.GetVoteAccounts(context.Background())
	require.Error(t, err)
}

func stakeAccount(voter string) map[string]interface{} {
	return map[string]interface{}{
		"lamports": 1000,
		"owner":    "Stake11111111111111111111111111111111111111",
		"data": map[string]interface{}{
			"program": "stake",
			"parsed": map[string]interface{}{
				"type": "delegated",
				"info": map[string]interface{}{
					"stake": map[string]interface{}{
						"delegation": map[string]interface{}{"voter": voter, "stake": "1000"},
					},
				},
			},
		},
	}
}

func TestGetMultipleAccountsBatches(t *testing.T) {
	srv, calls, mu := newTestNode(t, map[string]rpcHandlerFunc{
		"getMultipleAccounts": func(params []json.RawMessage) (interface{}, *RPCError) {
			var keys []string
			require.NoError(t, json.Unmarshal(params[0], &keys))
			require.LessOrEqual(t, len(keys), MaxAccountsPerRequest)

			values := make([]interface{}, len(keys))
			for i, key := range keys {
				switch key {
				case "missing":
					values[i] = nil
				case "system":
					values[i] = map[string]interface{}{"lamports": 5, "owner": "11111111111111111111111111111111", "data": []string{"", "base64"}}
				default:
					values[i] = stakeAccount("voter-" + key)
				}
			}
			return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": values}, nil
		},
	})
	cli := newTestClient(t, srv)

	keys := make([]string, 0, 250)
	for i := 0; i < 248; i++ {
		keys = append(keys, fmt.Sprintf("k%d", i))
	}
	keys = append(keys, "missing", "system")

	accounts, err := cli.GetMultipleAccounts(context.Background(), keys)
	require.NoError(t, err)
	require.Len(t, accounts, len(keys))

	for i := 0; i < 248; i++ {
		require.NotNil(t, accounts[i])
		require.Equal(t, keys[i], accounts[i].Pubkey)
		require.Equal(t, "voter-"+keys[i], accounts[i].Voter)
	}
	require.Nil(t, accounts[248])
	require.NotNil(t, accounts[249])
	require.Empty(t, accounts[249].Voter)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, calls["getMultipleAccounts"])
}

func TestGetVoteAccounts(t *testing.T) {
	srv, _, _ := newTestNode(t, map[string]rpcHandlerFunc{
		"getVoteAccounts": func(params []json.RawMessage) (interface{}, *RPCError) {
			return map[string]interface{}{
				"current": []map[string]interface{}{
					{"votePubkey": "VoteA", "nodePubkey": "NodeA", "activatedStake": 42, "epochVoteAccount": true, "commission": 5, "lastVote": 147, "rootSlot": 42},
				},
				"delinquent": []map[string]interface{}{
					{"votePubkey": "VoteB", "nodePubkey": "NodeB", "activatedStake": 1, "commission": 100, "lastVote": 3, "rootSlot": 0},
				},
			}, nil
		},
	})
	cli := newTestClient(t, srv)

	accounts, err := cli.GetVoteAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts.Current, 1)
	require.Len(t, accounts.Delinquent, 1)
	require.Equal(t, "NodeA", accounts.Current[0].NodePubkey)
	require.Equal(t, uint8(100), accounts.Delinquent[0].Commission)
}
