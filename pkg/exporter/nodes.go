package exporter

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
)

const unknownVersion = "unknown"

// ExportNodesInfo publishes the node count and version tally of whitelisted
// nodes. Balances are only queried when a whitelist is set.
func (e *Exporter) ExportNodesInfo(ctx context.Context, nodes []spec.ClusterNode) error {
	versions := make(map[string]int)
	var total int
	for _, node := range nodes {
		if !e.whitelist.Contains(node.Pubkey) {
			continue
		}
		total++
		version := unknownVersion
		if node.Version != nil && *node.Version != "" {
			version = *node.Version
		}
		versions[version]++
	}

	if !e.whitelist.IsEmpty() {
		for _, node := range nodes {
			if !e.whitelist.Contains(node.Pubkey) {
				continue
			}
			balance, err := e.cli.GetBalance(ctx, node.Pubkey)
			if err != nil {
				return errors.Wrapf(err, "unable to get balance of node %s", node.Pubkey)
			}
			e.sink.SetNodeBalance(node.Pubkey, balance)
		}
	}

	e.sink.SetNodeVersions(total, versions)
	return nil
}
