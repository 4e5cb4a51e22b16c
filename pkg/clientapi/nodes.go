package clientapi

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
)

type clusterNodeResponse struct {
	Pubkey  string  `json:"pubkey"`
	Gossip  *string `json:"gossip"`
	TPU     *string `json:"tpu"`
	RPC     *string `json:"rpc"`
	Version *string `json:"version"`
}

func (s *APIClient) GetClusterNodes(ctx context.Context) ([]spec.ClusterNode, error) {
	var resp []clusterNodeResponse
	if err := s.call(ctx, "getClusterNodes", &resp); err != nil {
		return nil, err
	}
	nodes := make([]spec.ClusterNode, 0, len(resp))
	for _, n := range resp {
		nodes = append(nodes, spec.ClusterNode{
			Pubkey:  n.Pubkey,
			Gossip:  n.Gossip,
			TPU:     n.TPU,
			RPC:     n.RPC,
			Version: n.Version,
		})
	}
	return nodes, nil
}

type balanceResponse struct {
	Value uint64 `json:"value"`
}

func (s *APIClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	var resp balanceResponse
	if err := s.call(ctx, "getBalance", &resp, pubkey, s.withCommitment(nil)); err != nil {
		return 0, err
	}
	return resp.Value, nil
}
