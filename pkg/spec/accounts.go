package spec

// StakeAccount is the subset of a parsed stake account needed to attribute rewards.
// Voter is empty when the account holds no active delegation.
type StakeAccount struct {
	Pubkey   string
	Lamports uint64
	Voter    string
}

type VoteAccount struct {
	VotePubkey       string
	NodePubkey       string
	ActivatedStake   uint64
	Commission       uint8
	LastVote         uint64
	RootSlot         uint64
	EpochVoteAccount bool
}

type VoteAccounts struct {
	Current    []VoteAccount
	Delinquent []VoteAccount
}

// ClusterNode is a gossip entry. Addresses are host:port, nil when not advertised.
type ClusterNode struct {
	Pubkey  string
	Gossip  *string
	TPU     *string
	RPC     *string
	Version *string
}
