package clientapi

import (
	"context"
	"encoding/json"

	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type accountInfo struct {
	Lamports uint64          `json:"lamports"`
	Owner    string          `json:"owner"`
	Data     json.RawMessage `json:"data"`
}

type parsedStakeAccount struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string `json:"type"`
		Info struct {
			Stake *struct {
				Delegation struct {
					Voter string `json:"voter"`
				} `json:"delegation"`
			} `json:"stake"`
		} `json:"info"`
	} `json:"parsed"`
}

type multipleAccountsResponse struct {
	Value []*accountInfo `json:"value"`
}

// GetMultipleAccounts returns one entry per requested key, in request order.
// Keys that do not exist on chain are nil. Requests are split into batches of
// MaxAccountsPerRequest and issued by at most accountWorkers goroutines.
func (s *APIClient) GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*spec.StakeAccount, error) {
	out := make([]*spec.StakeAccount, len(pubkeys))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.accountWorkers)
	for i, batch := range utils.ChunkStrings(pubkeys, MaxAccountsPerRequest) {
		offset := i * MaxAccountsPerRequest
		g.Go(func() error {
			accounts, err := s.getAccountsBatch(gCtx, batch)
			if err != nil {
				return err
			}
			copy(out[offset:offset+len(accounts)], accounts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *APIClient) getAccountsBatch(ctx context.Context, pubkeys []string) ([]*spec.StakeAccount, error) {
	var resp multipleAccountsResponse
	err := s.call(ctx, "getMultipleAccounts", &resp, pubkeys, s.withCommitment(map[string]interface{}{
		"encoding": "jsonParsed",
	}))
	if err != nil {
		return nil, err
	}
	if len(resp.Value) != len(pubkeys) {
		return nil, errors.Errorf("requested %d accounts, got %d", len(pubkeys), len(resp.Value))
	}

	accounts := make([]*spec.StakeAccount, len(pubkeys))
	for i, info := range resp.Value {
		if info == nil {
			continue
		}
		accounts[i] = &spec.StakeAccount{
			Pubkey:   pubkeys[i],
			Lamports: info.Lamports,
			Voter:    delegationVoter(info.Data),
		}
	}
	return accounts, nil
}

// delegationVoter extracts the delegated vote account from jsonParsed data.
// Accounts that are not parsed stake accounts have no voter.
func delegationVoter(data json.RawMessage) string {
	var parsed parsedStakeAccount
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ""
	}
	if parsed.Program != "stake" || parsed.Parsed.Info.Stake == nil {
		return ""
	}
	return parsed.Parsed.Info.Stake.Delegation.Voter
}
