package metrics

import (
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	chainNamespace = "solana"

	pubkeyLabel  = "pubkey"
	statusLabel  = "status"
	stateLabel   = "state"
	versionLabel = "version"
	ispLabel     = "isp_name"
	dcLabel      = "dc_identifier"
)

// ValidatorGauges is the set of chain metrics published by the exporter. It is
// the sink every component writes its results through.
type ValidatorGauges struct {
	activeValidators *prometheus.GaugeVec
	isDelinquent     *prometheus.GaugeVec
	activatedStake   *prometheus.GaugeVec
	lastVote         *prometheus.GaugeVec
	rootSlot         *prometheus.GaugeVec
	commission       *prometheus.GaugeVec

	transactionCount      prometheus.Gauge
	slotHeight            prometheus.Gauge
	currentEpoch          prometheus.Gauge
	currentEpochFirstSlot prometheus.Gauge
	currentEpochLastSlot  prometheus.Gauge
	averageSlotTime       prometheus.Gauge

	leaderSlots        *prometheus.CounterVec
	skippedSlotPercent *prometheus.GaugeVec

	currentStakingApy *prometheus.GaugeVec
	averageStakingApy *prometheus.GaugeVec
	validatorRewards  *prometheus.GaugeVec

	nodePubkeyBalances *prometheus.GaugeVec
	nodeVersions       *prometheus.GaugeVec
	nodes              prometheus.Gauge

	ispCount   *prometheus.GaugeVec
	dcCount    *prometheus.GaugeVec
	ispByStake *prometheus.GaugeVec
	dcByStake  *prometheus.GaugeVec
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: chainNamespace,
		Name:      name,
		Help:      help,
	}, labels)
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: chainNamespace,
		Name:      name,
		Help:      help,
	})
}

// NewValidatorGauges builds the gauges and registers them on reg.
func NewValidatorGauges(reg prometheus.Registerer) *ValidatorGauges {
	g := &ValidatorGauges{
		activeValidators: newGaugeVec("active_validators", "Total number of active validators", stateLabel),
		isDelinquent:     newGaugeVec("validator_delinquent", "Whether a validator is delinquent", pubkeyLabel),
		activatedStake:   newGaugeVec("validator_activated_stake", "Activated stake of a validator", pubkeyLabel),
		lastVote:         newGaugeVec("validator_last_vote", "Last voted slot of a validator", pubkeyLabel),
		rootSlot:         newGaugeVec("validator_root_slot", "Root slot of a validator", pubkeyLabel),
		commission:       newGaugeVec("staking_commission", "Commission charged by the validator", pubkeyLabel),

		transactionCount:      newGauge("transaction_count", "Total number of confirmed transactions since genesis"),
		slotHeight:            newGauge("slot_height", "Last confirmed slot height"),
		currentEpoch:          newGauge("current_epoch", "Current epoch"),
		currentEpochFirstSlot: newGauge("current_epoch_first_slot", "Current epoch's first slot"),
		currentEpochLastSlot:  newGauge("current_epoch_last_slot", "Current epoch's last slot"),
		averageSlotTime:       newGauge("average_slot_time", "Average slot time of the current epoch in seconds"),

		leaderSlots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: chainNamespace,
			Name:      "leader_slots",
			Help:      "Validated and skipped leader slots per validator",
		}, []string{pubkeyLabel, statusLabel}),
		skippedSlotPercent: newGaugeVec("skipped_slot_percent", "Skipped slot percentage per validator", pubkeyLabel),

		currentStakingApy: newGaugeVec("current_staking_apy", "Staking APY of the current epoch in percent", pubkeyLabel),
		averageStakingApy: newGaugeVec("average_staking_apy", "Time-weighted staking APY over the lookback window in percent", pubkeyLabel),
		validatorRewards:  newGaugeVec("validator_rewards", "Vote account balance after the current epoch's voting reward", pubkeyLabel),

		nodePubkeyBalances: newGaugeVec("node_pubkey_balances", "Balance of node pubkeys", pubkeyLabel),
		nodeVersions:       newGaugeVec("node_versions", "Number of nodes per software version", versionLabel),
		nodes:              newGauge("nodes", "Number of nodes"),

		ispCount:   newGaugeVec("active_validators_isp_count", "Number of active validators per ISP", ispLabel),
		dcCount:    newGaugeVec("active_validators_dc_count", "Number of active validators per datacenter", dcLabel),
		ispByStake: newGaugeVec("active_validators_isp_stake", "Activated stake per ISP", ispLabel),
		dcByStake:  newGaugeVec("active_validators_dc_stake", "Activated stake per datacenter", dcLabel),
	}

	reg.MustRegister(
		g.activeValidators, g.isDelinquent, g.activatedStake, g.lastVote, g.rootSlot, g.commission,
		g.transactionCount, g.slotHeight, g.currentEpoch, g.currentEpochFirstSlot, g.currentEpochLastSlot, g.averageSlotTime,
		g.leaderSlots, g.skippedSlotPercent,
		g.currentStakingApy, g.averageStakingApy, g.validatorRewards,
		g.nodePubkeyBalances, g.nodeVersions, g.nodes,
		g.ispCount, g.dcCount, g.ispByStake, g.dcByStake,
	)
	return g
}

func (g *ValidatorGauges) SetValidatorReward(voter string, lamports uint64) {
	g.validatorRewards.WithLabelValues(voter).Set(float64(lamports))
}

// SetStakingApy takes APY fractions and publishes them in percent.
func (g *ValidatorGauges) SetStakingApy(voter string, current, average float64) {
	g.currentStakingApy.WithLabelValues(voter).Set(current * 100)
	g.averageStakingApy.WithLabelValues(voter).Set(average * 100)
}

func (g *ValidatorGauges) AddLeaderSlots(leader string, status spec.SlotStatus, n uint64) {
	g.leaderSlots.WithLabelValues(leader, string(status)).Add(float64(n))
}

func (g *ValidatorGauges) SetSkippedSlotPercent(leader string, percent float64) {
	g.skippedSlotPercent.WithLabelValues(leader).Set(percent)
}

func (g *ValidatorGauges) SetActiveValidators(current, delinquent int) {
	g.activeValidators.WithLabelValues("current").Set(float64(current))
	g.activeValidators.WithLabelValues("delinquent").Set(float64(delinquent))
}

func (g *ValidatorGauges) SetVoteAccount(acc spec.VoteAccount, delinquent bool) {
	var d float64
	if delinquent {
		d = 1
	}
	g.isDelinquent.WithLabelValues(acc.VotePubkey).Set(d)
	g.activatedStake.WithLabelValues(acc.VotePubkey).Set(float64(acc.ActivatedStake))
	g.lastVote.WithLabelValues(acc.VotePubkey).Set(float64(acc.LastVote))
	g.rootSlot.WithLabelValues(acc.VotePubkey).Set(float64(acc.RootSlot))
	g.commission.WithLabelValues(acc.VotePubkey).Set(float64(acc.Commission))
}

func (g *ValidatorGauges) SetEpochInfo(info *spec.EpochInfo) {
	g.transactionCount.Set(float64(info.TransactionCount))
	g.slotHeight.Set(float64(info.AbsoluteSlot))
	g.currentEpoch.Set(float64(info.Epoch))
	g.currentEpochFirstSlot.Set(float64(info.FirstSlot()))
	g.currentEpochLastSlot.Set(float64(info.LastSlot()))
}

func (g *ValidatorGauges) SetAverageSlotTime(seconds float64) {
	g.averageSlotTime.Set(seconds)
}

func (g *ValidatorGauges) SetNodeBalance(pubkey string, lamports uint64) {
	g.nodePubkeyBalances.WithLabelValues(pubkey).Set(float64(lamports))
}

// SetNodeVersions replaces the version tally, dropping versions no longer seen.
func (g *ValidatorGauges) SetNodeVersions(total int, versions map[string]int) {
	g.nodes.Set(float64(total))
	g.nodeVersions.Reset()
	for version, count := range versions {
		g.nodeVersions.WithLabelValues(version).Set(float64(count))
	}
}

// SetGeolocation replaces the per-ISP and per-datacenter tallies.
func (g *ValidatorGauges) SetGeolocation(ispCount, dcCount, ispStake, dcStake map[string]uint64) {
	set := func(vec *prometheus.GaugeVec, values map[string]uint64) {
		vec.Reset()
		for k, v := range values {
			vec.WithLabelValues(k).Set(float64(v))
		}
	}
	set(g.ispCount, ispCount)
	set(g.dcCount, dcCount)
	set(g.ispByStake, ispStake)
	set(g.dcByStake, dcStake)
}
