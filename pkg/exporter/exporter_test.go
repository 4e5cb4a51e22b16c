package exporter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/migalabs/solana-exporter/pkg/clientapi"
	"github.com/migalabs/solana-exporter/pkg/clientapi/clientapitest"
	"github.com/migalabs/solana-exporter/pkg/db"
	"github.com/migalabs/solana-exporter/pkg/geolocation"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchedule = spec.EpochSchedule{SlotsPerEpoch: 1000}

type recordingSink struct {
	mu sync.Mutex

	rewards      map[string]uint64
	apys         map[string][2]float64
	leaderSlots  map[string]map[spec.SlotStatus]uint64
	skipPercent  map[string]float64
	active       [2]int
	voteAccounts map[string]bool
	epochInfo    *spec.EpochInfo
	slotTime     *float64
	balances     map[string]uint64
	nodes        int
	versions     map[string]int
	ispCount     map[string]uint64
	dcStake      map[string]uint64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		rewards:      make(map[string]uint64),
		apys:         make(map[string][2]float64),
		leaderSlots:  make(map[string]map[spec.SlotStatus]uint64),
		skipPercent:  make(map[string]float64),
		voteAccounts: make(map[string]bool),
		balances:     make(map[string]uint64),
	}
}

func (s *recordingSink) SetValidatorReward(voter string, lamports uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards[voter] = lamports
}

func (s *recordingSink) SetStakingApy(voter string, current, average float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apys[voter] = [2]float64{current, average}
}

func (s *recordingSink) AddLeaderSlots(leader string, status spec.SlotStatus, n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leaderSlots[leader]; !ok {
		s.leaderSlots[leader] = make(map[spec.SlotStatus]uint64)
	}
	s.leaderSlots[leader][status] += n
}

func (s *recordingSink) SetSkippedSlotPercent(leader string, pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipPercent[leader] = pct
}

func (s *recordingSink) SetGeolocation(ispCount, dcCount, ispStake, dcStake map[string]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ispCount = ispCount
	s.dcStake = dcStake
}

func (s *recordingSink) SetActiveValidators(current, delinquent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = [2]int{current, delinquent}
}

func (s *recordingSink) SetVoteAccount(acc spec.VoteAccount, delinquent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voteAccounts[acc.VotePubkey] = delinquent
}

func (s *recordingSink) SetEpochInfo(info *spec.EpochInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *info
	s.epochInfo = &cp
}

func (s *recordingSink) SetAverageSlotTime(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotTime = &seconds
}

func (s *recordingSink) SetNodeBalance(pubkey string, lamports uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[pubkey] = lamports
}

func (s *recordingSink) SetNodeVersions(total int, versions map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = total
	s.versions = versions
}

type fakeLocator struct {
	mu      sync.Mutex
	lookups int
	cities  map[string]*geolocation.CityResponse
}

func (l *fakeLocator) City(ctx context.Context, ip string) (*geolocation.CityResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lookups++
	city, ok := l.cities[ip]
	if !ok {
		return nil, errors.Errorf("unknown address %s", ip)
	}
	return city, nil
}

func addr(s string) *string {
	return &s
}

func infoAt(epoch spec.Epoch, slotIndex uint64) *spec.EpochInfo {
	return &spec.EpochInfo{
		Epoch:            epoch,
		SlotIndex:        slotIndex,
		SlotsInEpoch:     1000,
		AbsoluteSlot:     testSchedule.FirstSlotInEpoch(epoch) + spec.Slot(slotIndex),
		TransactionCount: 42,
	}
}

func newTestExporter(t *testing.T, cli clientapi.Client, sink Sink, options ...ExporterOption) *Exporter {
	epochCache, err := db.NewEpochCache(mapdb.NewMapDB())
	require.NoError(t, err)
	e, err := NewExporter(context.Background(), cli, epochCache, sink, options...)
	require.NoError(t, err)
	return e
}

func testVoteAccounts() *spec.VoteAccounts {
	return &spec.VoteAccounts{
		Current: []spec.VoteAccount{
			{VotePubkey: "Vote1", NodePubkey: "Node1", ActivatedStake: 500, Commission: 10},
			{VotePubkey: "Vote2", NodePubkey: "Node2", ActivatedStake: 300, Commission: 5},
		},
		Delinquent: []spec.VoteAccount{
			{VotePubkey: "Vote3", NodePubkey: "Node3", ActivatedStake: 100},
		},
	}
}

func TestExportVoteAccounts(t *testing.T) {
	tests := []struct {
		name       string
		whitelist  spec.Whitelist
		active     [2]int
		delinquent map[string]bool
	}{
		{
			name:       "no whitelist",
			whitelist:  spec.NewWhitelist(),
			active:     [2]int{2, 1},
			delinquent: map[string]bool{"Vote1": false, "Vote2": false, "Vote3": true},
		},
		{
			name:       "whitelisted",
			whitelist:  spec.NewWhitelist("Vote1", "Vote3"),
			active:     [2]int{1, 1},
			delinquent: map[string]bool{"Vote1": false, "Vote3": true},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sink := newRecordingSink()
			e := newTestExporter(t, clientapitest.NewFakeClient(testSchedule), sink, WithWhitelist(test.whitelist))
			e.ExportVoteAccounts(testVoteAccounts())
			require.Equal(t, test.active, sink.active)
			require.Equal(t, test.delinquent, sink.voteAccounts)
		})
	}
}

func TestExportEpochInfo(t *testing.T) {
	epochStart := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return epochStart.Add(160 * time.Second) }

	t.Run("average slot time", func(t *testing.T) {
		cli := clientapitest.NewFakeClient(testSchedule)
		ts := epochStart.Unix()
		cli.AddBlock(10_002, &ts)
		sink := newRecordingSink()
		e := newTestExporter(t, cli, sink, WithClock(clock))

		require.NoError(t, e.ExportEpochInfo(context.Background(), infoAt(10, 400)))
		require.NotNil(t, sink.epochInfo)
		require.Equal(t, uint64(42), sink.epochInfo.TransactionCount)
		require.NotNil(t, sink.slotTime)
		require.InDelta(t, 0.4, *sink.slotTime, 1e-9)

		// later polls read the first block from the duration estimator
		require.NoError(t, e.ExportEpochInfo(context.Background(), infoAt(10, 800)))
		require.Equal(t, 1, cli.Calls("getBlock"))
		require.InDelta(t, 0.2, *sink.slotTime, 1e-9)
	})

	t.Run("first block without timestamp", func(t *testing.T) {
		cli := clientapitest.NewFakeClient(testSchedule)
		cli.AddBlock(10_000, nil)
		sink := newRecordingSink()
		e := newTestExporter(t, cli, sink, WithClock(clock))

		require.NoError(t, e.ExportEpochInfo(context.Background(), infoAt(10, 400)))
		require.NotNil(t, sink.epochInfo)
		require.Nil(t, sink.slotTime)
	})

	t.Run("epoch just started", func(t *testing.T) {
		cli := clientapitest.NewFakeClient(testSchedule)
		sink := newRecordingSink()
		e := newTestExporter(t, cli, sink, WithClock(clock))

		require.NoError(t, e.ExportEpochInfo(context.Background(), infoAt(10, 20)))
		require.Nil(t, sink.slotTime)
	})

	t.Run("missing first block", func(t *testing.T) {
		cli := clientapitest.NewFakeClient(testSchedule)
		sink := newRecordingSink()
		e := newTestExporter(t, cli, sink, WithClock(clock))

		err := e.ExportEpochInfo(context.Background(), infoAt(10, 400))
		require.True(t, errors.Is(err, clientapi.ErrNoBlocksFound))
		require.NotNil(t, sink.epochInfo)
		require.Nil(t, sink.slotTime)
	})
}

func TestExportNodesInfo(t *testing.T) {
	nodes := []spec.ClusterNode{
		{Pubkey: "Node1", Version: addr("1.18.4")},
		{Pubkey: "Node2", Version: addr("1.18.4")},
		{Pubkey: "Node3"},
	}

	t.Run("no whitelist", func(t *testing.T) {
		cli := clientapitest.NewFakeClient(testSchedule)
		sink := newRecordingSink()
		e := newTestExporter(t, cli, sink)

		require.NoError(t, e.ExportNodesInfo(context.Background(), nodes))
		require.Equal(t, 3, sink.nodes)
		require.Equal(t, map[string]int{"1.18.4": 2, "unknown": 1}, sink.versions)
		require.Zero(t, cli.Calls("getBalance"))
		require.Empty(t, sink.balances)
	})

	t.Run("whitelisted", func(t *testing.T) {
		cli := clientapitest.NewFakeClient(testSchedule)
		cli.Balances["Node1"] = 7_000
		cli.Balances["Node3"] = 9_000
		sink := newRecordingSink()
		e := newTestExporter(t, cli, sink, WithWhitelist(spec.NewWhitelist("Node1", "Node3")))

		require.NoError(t, e.ExportNodesInfo(context.Background(), nodes))
		require.Equal(t, 2, sink.nodes)
		require.Equal(t, map[string]int{"1.18.4": 1, "unknown": 1}, sink.versions)
		require.Equal(t, 2, cli.Calls("getBalance"))
		require.Equal(t, map[string]uint64{"Node1": 7_000, "Node3": 9_000}, sink.balances)
	})

	t.Run("balance failure", func(t *testing.T) {
		cli := clientapitest.NewFakeClient(testSchedule)
		cli.Errors["getBalance"] = errors.New("node unavailable")
		sink := newRecordingSink()
		e := newTestExporter(t, cli, sink, WithWhitelist(spec.NewWhitelist("Node1")))

		require.Error(t, e.ExportNodesInfo(context.Background(), nodes))
		require.Nil(t, sink.versions)
	})
}

// newPollClient is a node in the first slots of epoch 3, before its first
// block. Node1 leads slots 0 to 2 and skips them.
func newPollClient() *clientapitest.FakeClient {
	cli := clientapitest.NewFakeClient(testSchedule)
	cli.Info = infoAt(3, 5)
	cli.LeaderSchedules[3000] = map[string][]uint64{"Node1": {0, 1, 2}, "Node2": {3, 4}}
	cli.VoteAccounts = testVoteAccounts()
	cli.Nodes = []spec.ClusterNode{
		{Pubkey: "Node1", TPU: addr("10.0.0.1:8003"), Version: addr("1.18.4")},
		{Pubkey: "Node2", Gossip: addr("10.0.0.2:8001"), Version: addr("1.18.4")},
		{Pubkey: "Node4", Gossip: addr("10.0.0.4:8001")},
	}
	return cli
}

func TestPoll(t *testing.T) {
	cli := newPollClient()
	sink := newRecordingSink()
	locator := &fakeLocator{cities: map[string]*geolocation.CityResponse{
		"10.0.0.1": {
			Country: &geolocation.Country{IsoCode: "DE"},
			Traits:  geolocation.Traits{AutonomousSystemNumber: 24940, ISP: "Hetzner"},
		},
		"10.0.0.2": {
			Country: &geolocation.Country{IsoCode: "DE"},
			Traits:  geolocation.Traits{AutonomousSystemNumber: 24940, ISP: "Hetzner"},
		},
	}}
	e := newTestExporter(t, cli, sink, WithGeolocation(locator))

	require.NoError(t, e.Poll(context.Background()))

	require.NotNil(t, sink.epochInfo)
	assert.Equal(t, spec.Epoch(3), sink.epochInfo.Epoch)
	assert.Nil(t, sink.slotTime)
	assert.Equal(t, [2]int{2, 1}, sink.active)
	assert.Empty(t, sink.apys)

	assert.Equal(t, map[spec.SlotStatus]uint64{spec.SlotSkipped: 3}, sink.leaderSlots["Node1"])
	assert.Equal(t, map[spec.SlotStatus]uint64{spec.SlotSkipped: 2}, sink.leaderSlots["Node2"])
	assert.InDelta(t, 100, sink.skipPercent["Node1"], 1e-9)

	assert.Equal(t, 3, sink.nodes)
	assert.Equal(t, map[string]int{"1.18.4": 2, "unknown": 1}, sink.versions)

	assert.Equal(t, map[string]uint64{"Hetzner": 2}, sink.ispCount)
	assert.Equal(t, map[string]uint64{"24940-DE": 800}, sink.dcStake)
	assert.Equal(t, 2, locator.lookups)

	snapshot := e.monitor.Snapshot()
	assert.Equal(t, uint64(1), snapshot.Polls)
	assert.Empty(t, snapshot.Failures)
	assert.Contains(t, snapshot.StepTime, stepGeolocation)
}

func TestPollCarriesOnAfterFailedStep(t *testing.T) {
	cli := newPollClient()
	cli.Errors["getVoteAccounts"] = errors.New("connection reset")
	sink := newRecordingSink()
	locator := &fakeLocator{}
	e := newTestExporter(t, cli, sink, WithGeolocation(locator))

	err := e.Poll(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), stepVoteAccounts)

	// later steps still ran, geolocation needs the vote accounts
	assert.Equal(t, 1, cli.Calls("getLeaderSchedule"))
	assert.Equal(t, 1, cli.Calls("getClusterNodes"))
	assert.Equal(t, 3, sink.nodes)
	assert.Zero(t, locator.lookups)
	assert.Nil(t, sink.ispCount)

	snapshot := e.monitor.Snapshot()
	assert.Equal(t, map[string]uint64{stepVoteAccounts: 1}, snapshot.Failures)
}

func TestPollWithoutEpochInfo(t *testing.T) {
	cli := newPollClient()
	cli.Errors["getEpochInfo"] = errors.New("connection refused")
	sink := newRecordingSink()
	e := newTestExporter(t, cli, sink)

	require.Error(t, e.Poll(context.Background()))
	require.Zero(t, cli.Calls("getVoteAccounts"))
	require.Zero(t, cli.Calls("getLeaderSchedule"))
	require.Nil(t, sink.epochInfo)
}

func TestRunAndClose(t *testing.T) {
	cli := newPollClient()
	e := newTestExporter(t, cli, newRecordingSink(), WithPollInterval(10*time.Millisecond))

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	require.Eventually(t, func() bool {
		return cli.Calls("getEpochInfo") >= 3
	}, 2*time.Second, 5*time.Millisecond)

	e.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("exporter did not stop")
	}
	// the leader schedule is loaded once per epoch
	require.Equal(t, 1, cli.Calls("getLeaderSchedule"))
}

func TestInvalidPollInterval(t *testing.T) {
	epochCache, err := db.NewEpochCache(mapdb.NewMapDB())
	require.NoError(t, err)
	_, err = NewExporter(context.Background(), clientapitest.NewFakeClient(testSchedule), epochCache, newRecordingSink(), WithPollInterval(0))
	require.Error(t, err)
}
