package geolocation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeSink struct {
	ispCount, dcCount, ispStake, dcStake map[string]uint64
}

func (s *fakeSink) SetGeolocation(ispCount, dcCount, ispStake, dcStake map[string]uint64) {
	s.ispCount, s.dcCount, s.ispStake, s.dcStake = ispCount, dcCount, ispStake, dcStake
}

var testCities = map[string]CityResponse{
	"10.0.0.1": {
		City:    &City{Names: map[string]string{"en": "Frankfurt"}},
		Country: &Country{IsoCode: "DE"},
		Traits:  Traits{AutonomousSystemNumber: 24940, ISP: "Hetzner"},
	},
	"10.0.0.2": {
		City:    &City{Names: map[string]string{"en": "Frankfurt"}},
		Country: &Country{IsoCode: "DE"},
		Traits:  Traits{AutonomousSystemNumber: 24940, ISP: "Hetzner"},
	},
	"10.0.0.3": {
		Traits: Traits{AutonomousSystemNumber: 16509, ISP: "Amazon"},
	},
}

func newMaxMindServer(t *testing.T, lookups *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "account" || pass != "license" {
			http.Error(w, `{"code":"AUTHORIZATION_INVALID"}`, http.StatusUnauthorized)
			return
		}
		lookups.Add(1)
		ip := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		city, ok := testCities[ip]
		if !ok {
			http.Error(w, `{"code":"IP_ADDRESS_NOT_FOUND"}`, http.StatusNotFound)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(city))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func addr(s string) *string { return &s }

func TestDatacenterIdentifier(t *testing.T) {
	tests := []struct {
		name string
		city CityResponse
		id   string
	}{
		{"full", testCities["10.0.0.1"], "24940-DE-Frankfurt"},
		{"no country", testCities["10.0.0.3"], "16509-XX"},
		{"no english name", CityResponse{
			City:    &City{Names: map[string]string{"de": "Köln"}},
			Country: &Country{IsoCode: "DE"},
			Traits:  Traits{AutonomousSystemNumber: 1},
		}, "1-DE"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.id, DatacenterIdentifier(&test.city))
		})
	}
}

func TestNodeIP(t *testing.T) {
	ip, ok := NodeIP(spec.ClusterNode{Gossip: addr("10.0.0.2:8001"), RPC: addr("10.0.0.3:8899")})
	require.True(t, ok)
	require.Equal(t, "10.0.0.2", ip)

	ip, ok = NodeIP(spec.ClusterNode{TPU: addr("[2001:db8::1]:8003"), Gossip: addr("10.0.0.2:8001")})
	require.True(t, ok)
	require.Equal(t, "2001:db8::1", ip)

	_, ok = NodeIP(spec.ClusterNode{TPU: addr("not-an-address")})
	require.False(t, ok)
}

func TestGeoCacheInvalidation(t *testing.T) {
	geoCache := NewGeoCache(mapdb.NewMapDB())
	fetchedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, geoCache.Add("10.0.0.1", &GeoInfo{Response: testCities["10.0.0.1"], FetchedAt: fetchedAt}))

	fresh := func(time.Time) bool { return false }
	info, found, err := geoCache.FetchWithInvalidation("10.0.0.1", fresh)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Hetzner", info.Response.Traits.ISP)
	require.True(t, fetchedAt.Equal(info.FetchedAt))

	stale := func(time.Time) bool { return true }
	_, found, err = geoCache.FetchWithInvalidation("10.0.0.1", stale)
	require.NoError(t, err)
	require.False(t, found)

	// the stale entry is gone for good
	_, found, err = geoCache.Fetch("10.0.0.1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMaxMindClient(t *testing.T) {
	var lookups atomic.Int32
	srv := newMaxMindServer(t, &lookups)
	ctx := context.Background()

	_, err := NewMaxMindClient("account", "")
	require.Error(t, err)

	cli, err := NewMaxMindClient("account", "license", WithEndpoint(srv.URL+"/geoip/v2.1/city/"))
	require.NoError(t, err)
	city, err := cli.City(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, uint32(24940), city.Traits.AutonomousSystemNumber)

	_, err = cli.City(ctx, "192.168.1.1")
	require.Error(t, err)

	bad, err := NewMaxMindClient("account", "wrong", WithEndpoint(srv.URL))
	require.NoError(t, err)
	_, err = bad.City(ctx, "10.0.0.1")
	require.Error(t, err)
}

func TestExportIPAddresses(t *testing.T) {
	var lookups atomic.Int32
	srv := newMaxMindServer(t, &lookups)
	cli, err := NewMaxMindClient("account", "license", WithEndpoint(srv.URL))
	require.NoError(t, err)

	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	geoCache := NewGeoCache(mapdb.NewMapDB())
	sink := &fakeSink{}
	exporter := NewExporter(geoCache, cli, sink, func() time.Time { return now })

	nodes := []spec.ClusterNode{
		{Pubkey: "NodeA", TPU: addr("10.0.0.1:8003")},
		{Pubkey: "NodeB", Gossip: addr("10.0.0.2:8001")},
		{Pubkey: "NodeC", RPC: addr("10.0.0.3:8899")},
		{Pubkey: "NodeD", Gossip: addr("192.168.1.1:8001")},
		{Pubkey: "NotValidating", Gossip: addr("10.0.0.9:8001")},
	}
	voteAccounts := &spec.VoteAccounts{
		Current: []spec.VoteAccount{
			{VotePubkey: "VoteA", NodePubkey: "NodeA", ActivatedStake: 100},
			{VotePubkey: "VoteB", NodePubkey: "NodeB", ActivatedStake: 50},
			{VotePubkey: "VoteC", NodePubkey: "NodeC", ActivatedStake: 7},
			{VotePubkey: "VoteD", NodePubkey: "NodeD", ActivatedStake: 1},
		},
	}

	ctx := context.Background()
	require.NoError(t, exporter.ExportIPAddresses(ctx, nodes, voteAccounts, spec.NewWhitelist()))

	require.Equal(t, map[string]uint64{"Hetzner": 2, "Amazon": 1}, sink.ispCount)
	require.Equal(t, map[string]uint64{"Hetzner": 150, "Amazon": 7}, sink.ispStake)
	require.Equal(t, map[string]uint64{"24940-DE-Frankfurt": 2, "16509-XX": 1}, sink.dcCount)
	require.Equal(t, map[string]uint64{"24940-DE-Frankfurt": 150, "16509-XX": 7}, sink.dcStake)
	require.Equal(t, int32(4), lookups.Load())

	// cached lookups are reused, the failed one is retried
	require.NoError(t, exporter.ExportIPAddresses(ctx, nodes, voteAccounts, spec.NewWhitelist()))
	require.Equal(t, int32(5), lookups.Load())

	// a week later everything is looked up again
	now = now.Add(MaxAge + time.Hour)
	require.NoError(t, exporter.ExportIPAddresses(ctx, nodes, voteAccounts, spec.NewWhitelist("NodeC")))
	require.Equal(t, int32(6), lookups.Load())
	require.Equal(t, map[string]uint64{"Amazon": 1}, sink.ispCount)
}

func TestExportIPAddressesCancelled(t *testing.T) {
	var lookups atomic.Int32
	srv := newMaxMindServer(t, &lookups)
	cli, err := NewMaxMindClient("account", "license", WithEndpoint(srv.URL))
	require.NoError(t, err)

	geoCache := NewGeoCache(mapdb.NewMapDB())
	sink := &fakeSink{}
	exporter := NewExporter(geoCache, cli, sink, time.Now)

	nodes := []spec.ClusterNode{{Pubkey: "NodeA", TPU: addr("10.0.0.1:8003")}}
	voteAccounts := &spec.VoteAccounts{
		Current: []spec.VoteAccount{{VotePubkey: "VoteA", NodePubkey: "NodeA", ActivatedStake: 100}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = exporter.ExportIPAddresses(ctx, nodes, voteAccounts, spec.NewWhitelist())
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, sink.ispCount)

	_, found, err := geoCache.Fetch("10.0.0.1")
	require.NoError(t, err)
	require.False(t, found)
}
