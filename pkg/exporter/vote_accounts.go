package exporter

import "github.com/migalabs/solana-exporter/pkg/spec"

// ExportVoteAccounts publishes the state of every whitelisted vote account.
func (e *Exporter) ExportVoteAccounts(voteAccounts *spec.VoteAccounts) {
	var current, delinquent int
	for _, acc := range voteAccounts.Current {
		if !e.whitelist.Contains(acc.VotePubkey) {
			continue
		}
		current++
		e.sink.SetVoteAccount(acc, false)
	}
	for _, acc := range voteAccounts.Delinquent {
		if !e.whitelist.Contains(acc.VotePubkey) {
			continue
		}
		delinquent++
		e.sink.SetVoteAccount(acc, true)
	}
	e.sink.SetActiveValidators(current, delinquent)
	e.metrics.voteAccounts.Set(float64(current + delinquent))
}
