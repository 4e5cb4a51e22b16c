package clientapi

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
)

type voteAccountResponse struct {
	VotePubkey       string `json:"votePubkey"`
	NodePubkey       string `json:"nodePubkey"`
	ActivatedStake   uint64 `json:"activatedStake"`
	EpochVoteAccount bool   `json:"epochVoteAccount"`
	Commission       uint8  `json:"commission"`
	LastVote         uint64 `json:"lastVote"`
	RootSlot         uint64 `json:"rootSlot"`
}

type voteAccountsResponse struct {
	Current    []voteAccountResponse `json:"current"`
	Delinquent []voteAccountResponse `json:"delinquent"`
}

func (s *APIClient) GetVoteAccounts(ctx context.Context) (*spec.VoteAccounts, error) {
	var resp voteAccountsResponse
	if err := s.call(ctx, "getVoteAccounts", &resp, s.withCommitment(nil)); err != nil {
		return nil, err
	}
	return &spec.VoteAccounts{
		Current:    toVoteAccounts(resp.Current),
		Delinquent: toVoteAccounts(resp.Delinquent),
	}, nil
}

func toVoteAccounts(in []voteAccountResponse) []spec.VoteAccount {
	out := make([]spec.VoteAccount, 0, len(in))
	for _, v := range in {
		out = append(out, spec.VoteAccount{
			VotePubkey:       v.VotePubkey,
			NodePubkey:       v.NodePubkey,
			ActivatedStake:   v.ActivatedStake,
			Commission:       v.Commission,
			LastVote:         v.LastVote,
			RootSlot:         v.RootSlot,
			EpochVoteAccount: v.EpochVoteAccount,
		})
	}
	return out
}
