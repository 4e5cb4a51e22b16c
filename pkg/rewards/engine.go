package rewards

import (
	"context"
	"sort"
	"time"

	"github.com/migalabs/solana-exporter/pkg/clientapi"
	"github.com/migalabs/solana-exporter/pkg/db"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	modName = "Rewards"
	log     = logrus.WithField(
		"module", modName,
	)

	// ErrHistoricalEpochMissing means an epoch inside the lookback window was
	// tracked but its staking samples never reached the cache.
	ErrHistoricalEpochMissing = errors.New("historical epoch missing from cache")
)

// Sink receives the metrics computed for the current epoch.
type Sink interface {
	SetValidatorReward(voter string, lamports uint64)
	SetStakingApy(voter string, current, average float64)
}

// Metrics is the outcome of one computation over the current epoch.
type Metrics struct {
	Epoch            spec.Epoch
	VoterApy         map[string]spec.VoterApy
	ValidatorRewards []spec.ValidatorReward
}

type Engine struct {
	cli        clientapi.Client
	epochCache *db.EpochCache
	durations  *DurationEstimator
	sink       Sink

	lookback uint64
	now      func() time.Time

	metrics *engineMetrics
}

type EngineOption func(*Engine) error

func WithLookback(epochs uint64) EngineOption {
	return func(e *Engine) error {
		if epochs == 0 {
			return errors.New("lookback must include the current epoch")
		}
		e.lookback = epochs
		return nil
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) error {
		e.now = now
		return nil
	}
}

func NewEngine(cli clientapi.Client, epochCache *db.EpochCache, sink Sink, options ...EngineOption) (*Engine, error) {
	e := &Engine{
		cli:        cli,
		epochCache: epochCache,
		sink:       sink,
		lookback:   spec.MaxEpochLookback,
		now:        time.Now,
		metrics:    newEngineMetrics(),
	}
	for _, opt := range options {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.durations = NewDurationEstimator(cli, epochCache, e.now)
	return e, nil
}

// Durations exposes the estimator, whose first block memo the epoch info
// step reuses.
func (e *Engine) Durations() *DurationEstimator {
	return e.durations
}

// Export computes the metrics of the current epoch and publishes them.
// Nothing is published unless the whole computation succeeds.
func (e *Engine) Export(ctx context.Context, info *spec.EpochInfo, whitelist spec.Whitelist) error {
	initTime := time.Now()
	m, err := e.ComputeMetrics(ctx, info, whitelist)
	if err != nil {
		e.metrics.failures.Inc()
		return err
	}
	if m == nil {
		log.Debugf("rewards of epoch %d not available yet", info.Epoch)
		return nil
	}

	for _, reward := range m.ValidatorRewards {
		e.sink.SetValidatorReward(reward.Voter, reward.Lamports)
	}
	for _, apy := range m.VoterApy {
		e.sink.SetStakingApy(apy.Voter, apy.CurrentApy, apy.AverageApy)
	}

	if days, known, err := e.durations.DurationDays(ctx, info.Epoch, info); err != nil {
		log.Warnf("unable to estimate duration of epoch %d: %s", info.Epoch, err.Error())
	} else if known {
		e.metrics.epochDuration.Set(days)
	}
	e.metrics.computed(m)

	log.WithFields(logrus.Fields{
		"epoch":             info.Epoch,
		"voters":            len(m.VoterApy),
		"validator-rewards": len(m.ValidatorRewards),
	}).Debugf("rewards exported in %s", time.Since(initTime))
	return nil
}

// ComputeMetrics returns nil metrics and no error while the current epoch has
// not produced its first block yet.
func (e *Engine) ComputeMetrics(ctx context.Context, info *spec.EpochInfo, whitelist spec.Whitelist) (*Metrics, error) {
	rewards, ok, err := e.currentRewards(ctx, info)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if err := e.resolveEpochVoters(ctx, info.Epoch, rewards, whitelist); err != nil {
		return nil, errors.Wrapf(err, "unable to resolve staking voters of epoch %d", info.Epoch)
	}

	voterApy, err := e.voterApy(ctx, info)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Epoch:            info.Epoch,
		VoterApy:         voterApy,
		ValidatorRewards: validatorRewards(rewards, whitelist),
	}, nil
}

// currentRewards returns the rewards of the first block of the current epoch,
// fetching and storing them on a cache miss.
func (e *Engine) currentRewards(ctx context.Context, info *spec.EpochInfo) ([]spec.Reward, bool, error) {
	rewards, found, err := e.epochCache.GetRewards(info.Epoch)
	if err != nil || found {
		return rewards, found, err
	}

	slot, found, err := clientapi.FirstBlock(ctx, e.cli, info.Epoch, info)
	if err != nil || !found {
		return nil, false, err
	}
	block, err := e.cli.GetBlock(ctx, slot, true)
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to get rewards of block %d", slot)
	}
	if err := e.epochCache.PutRewards(info.Epoch, block.Rewards); err != nil {
		return nil, false, err
	}
	log.Infof("stored %d rewards of epoch %d from block %d", len(block.Rewards), info.Epoch, slot)
	return block.Rewards, true, nil
}

// validatorRewards keeps the post balance of whitelisted vote accounts.
func validatorRewards(rewards []spec.Reward, whitelist spec.Whitelist) []spec.ValidatorReward {
	balances := make(map[string]uint64)
	for _, r := range rewards {
		if r.Kind != spec.RewardVoting || !whitelist.Contains(r.Pubkey) {
			continue
		}
		balances[r.Pubkey] = r.PostBalance
	}
	out := make([]spec.ValidatorReward, 0, len(balances))
	for voter, lamports := range balances {
		out = append(out, spec.ValidatorReward{Voter: voter, Lamports: lamports})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Voter < out[j].Voter })
	return out
}

// resolveEpochVoters turns the staking rewards of epoch into one sample per
// voter. The epoch voters record is written last and marks the epoch as done.
func (e *Engine) resolveEpochVoters(ctx context.Context, epoch spec.Epoch, rewards []spec.Reward, whitelist spec.Whitelist) error {
	_, found, err := e.epochCache.GetEpochVoters(epoch)
	if err != nil || found {
		return err
	}

	staking := make([]spec.Reward, 0)
	for _, r := range rewards {
		if r.Kind != spec.RewardStaking || !whitelist.Contains(r.Pubkey) {
			continue
		}
		if r.Lamports <= 0 || r.PostBalance < uint64(r.Lamports) {
			continue
		}
		staking = append(staking, r)
	}

	voters := make([]string, 0)
	var ignored int
	if len(staking) > 0 {
		pubkeys := make([]string, len(staking))
		for i, r := range staking {
			pubkeys[i] = r.Pubkey
		}
		accounts, err := e.cli.GetMultipleAccounts(ctx, pubkeys)
		if err != nil {
			return err
		}
		if len(accounts) != len(staking) {
			return errors.Errorf("requested %d stake accounts, got %d", len(staking), len(accounts))
		}

		// the first stake account seen for a voter is its only sample
		samples := make(map[string]spec.VoterCreditSample)
		for i, r := range staking {
			acc := accounts[i]
			if acc == nil || acc.Voter == "" {
				continue
			}
			if _, ok := samples[acc.Voter]; ok {
				// TODO: aggregate every stake account of a voter once the yield of
				// a voter is defined over its whole delegation
				ignored++
				continue
			}
			samples[acc.Voter] = spec.VoterCreditSample{
				Voter:           acc.Voter,
				Epoch:           epoch,
				Balance:         r.PostBalance,
				PreviousBalance: r.PostBalance - uint64(r.Lamports),
			}
			voters = append(voters, acc.Voter)
		}
		for _, voter := range voters {
			if err := e.epochCache.AppendVoterSamples(voter, []spec.VoterCreditSample{samples[voter]}); err != nil {
				return err
			}
		}
	}

	if err := e.epochCache.PutEpochVoters(epoch, voters); err != nil {
		return err
	}
	log.WithField("ignored-stake-accounts", ignored).
		Infof("resolved %d staking voters of epoch %d from %d stake rewards", len(voters), epoch, len(staking))
	return nil
}

// window returns the tracked epochs of the lookback window ending at current.
func (e *Engine) window(current spec.Epoch) ([]spec.Epoch, error) {
	start := spec.Epoch(0)
	if uint64(current)+1 > e.lookback {
		start = current + 1 - spec.Epoch(e.lookback)
	}

	trackedSince, found, err := e.epochCache.TrackedSince()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(ErrHistoricalEpochMissing, "no epoch tracked up to %d", current)
	}
	if trackedSince > current {
		return nil, errors.Errorf("cache tracks epochs from %d, ahead of current epoch %d", trackedSince, current)
	}
	if trackedSince > start {
		start = trackedSince
	}

	epochs := make([]spec.Epoch, 0, e.lookback)
	for epoch := start; epoch <= current; epoch++ {
		epochs = append(epochs, epoch)
	}
	return epochs, nil
}

// voterApy computes the current and the duration weighted average yield of
// every voter seen in the lookback window.
func (e *Engine) voterApy(ctx context.Context, info *spec.EpochInfo) (map[string]spec.VoterApy, error) {
	epochs, err := e.window(info.Epoch)
	if err != nil {
		return nil, err
	}

	durations := make([]float64, len(epochs))
	voters := make(map[string]struct{})
	for i, epoch := range epochs {
		epochVoters, found, err := e.epochCache.GetEpochVoters(epoch)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.Wrapf(ErrHistoricalEpochMissing, "epoch %d", epoch)
		}
		for _, voter := range epochVoters {
			voters[voter] = struct{}{}
		}
		if durations[i], err = e.stakingPeriodDays(ctx, epoch, info); err != nil {
			return nil, err
		}
	}

	out := make(map[string]spec.VoterApy, len(voters))
	for voter := range voters {
		samples, err := e.epochCache.GetVoterSamples(voter)
		if err != nil {
			return nil, err
		}
		apys := make([]float64, len(epochs))
		for i, epoch := range epochs {
			if sample, ok := samples.Get(epoch); ok {
				apys[i] = spec.EpochApy(sample, durations[i])
			}
		}
		out[voter] = spec.VoterApy{
			Voter:      voter,
			CurrentApy: apys[len(apys)-1],
			AverageApy: spec.WeightedAverage(apys, durations),
		}
	}
	return out, nil
}

// stakingPeriodDays is the length of the period paid by the rewards of epoch,
// which is the epoch before it.
func (e *Engine) stakingPeriodDays(ctx context.Context, epoch spec.Epoch, info *spec.EpochInfo) (float64, error) {
	if epoch == 0 {
		return spec.DefaultEpochDurationDays, nil
	}
	days, known, err := e.durations.DurationDays(ctx, epoch-1, info)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to measure epoch %d", epoch-1)
	}
	if !known {
		return spec.DefaultEpochDurationDays, nil
	}
	return days, nil
}
