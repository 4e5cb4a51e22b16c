package spec

import "strings"

type RewardType int8

const (
	RewardOther RewardType = iota
	RewardFee
	RewardRent
	RewardStaking
	RewardVoting
)

func (r RewardType) String() string {
	switch r {
	case RewardFee:
		return "Fee"
	case RewardRent:
		return "Rent"
	case RewardStaking:
		return "Staking"
	case RewardVoting:
		return "Voting"
	default:
		return "Other"
	}
}

// ParseRewardType maps the node's reward type string, any unknown value is Other.
func ParseRewardType(s string) RewardType {
	switch strings.ToLower(s) {
	case "fee":
		return RewardFee
	case "rent":
		return RewardRent
	case "staking":
		return RewardStaking
	case "voting":
		return RewardVoting
	default:
		return RewardOther
	}
}

// Reward is a balance change credited to an account at an epoch boundary.
type Reward struct {
	Pubkey      string     `json:"pubkey"`
	Lamports    int64      `json:"lamports"`
	PostBalance uint64     `json:"post_balance"`
	Kind        RewardType `json:"kind"`
	Commission  *uint8     `json:"commission,omitempty"`
}

type Block struct {
	Slot      Slot
	BlockTime *int64
	Rewards   []Reward
}

// ValidatorReward is the balance of a vote account after its voting reward.
type ValidatorReward struct {
	Voter    string
	Lamports uint64
}
