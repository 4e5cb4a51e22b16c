package geolocation

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	modName = "Geolocation"
	log     = logrus.WithField(
		"module", modName,
	)
)

const (
	// MaxAge is how long a lookup is trusted before MaxMind is asked again.
	MaxAge = 7 * 24 * time.Hour

	lookupWorkers = 8
)

type Sink interface {
	SetGeolocation(ispCount, dcCount, ispStake, dcStake map[string]uint64)
}

type Locator interface {
	City(ctx context.Context, ip string) (*CityResponse, error)
}

// Exporter aggregates validator nodes by ISP and datacenter.
type Exporter struct {
	geoCache *GeoCache
	locator  Locator
	sink     Sink
	now      func() time.Time
}

func NewExporter(geoCache *GeoCache, locator Locator, sink Sink, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{
		geoCache: geoCache,
		locator:  locator,
		sink:     sink,
		now:      now,
	}
}

type validatorNode struct {
	ip    string
	stake uint64
}

// NodeIP returns the address of the first advertised socket among tpu, gossip and rpc.
func NodeIP(node spec.ClusterNode) (string, bool) {
	for _, addr := range []*string{node.TPU, node.Gossip, node.RPC} {
		if addr == nil || *addr == "" {
			continue
		}
		host, _, err := net.SplitHostPort(*addr)
		if err != nil {
			continue
		}
		if ip := net.ParseIP(host); ip != nil {
			return ip.String(), true
		}
	}
	return "", false
}

// ExportIPAddresses locates every whitelisted node backing a current vote
// account and publishes node counts and stake per ISP and per datacenter.
func (e *Exporter) ExportIPAddresses(ctx context.Context, nodes []spec.ClusterNode, voteAccounts *spec.VoteAccounts, whitelist spec.Whitelist) error {
	stakeByNode := make(map[string]uint64, len(voteAccounts.Current))
	for _, acc := range voteAccounts.Current {
		stakeByNode[acc.NodePubkey] = acc.ActivatedStake
	}

	validators := make([]validatorNode, 0)
	for _, node := range nodes {
		stake, ok := stakeByNode[node.Pubkey]
		if !ok || !whitelist.Contains(node.Pubkey) {
			continue
		}
		ip, ok := NodeIP(node)
		if !ok {
			log.Warnf("validator node %s advertises no address", node.Pubkey)
			continue
		}
		validators = append(validators, validatorNode{ip: ip, stake: stake})
	}

	now := e.now()
	isStale := func(fetchedAt time.Time) bool {
		return fetchedAt.Add(MaxAge).Before(now)
	}

	located := make(map[string]*CityResponse)
	uncached := make(map[string]struct{})
	for _, v := range validators {
		info, found, err := e.geoCache.FetchWithInvalidation(v.ip, isStale)
		if err != nil {
			return err
		}
		if found {
			located[v.ip] = &info.Response
			continue
		}
		uncached[v.ip] = struct{}{}
	}
	log.Debugf("%d validator addresses cached, %d to look up", len(located), len(uncached))

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(lookupWorkers)
	for ip := range uncached {
		g.Go(func() error {
			city, err := e.locator.City(gCtx, ip)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Errorf("unable to locate %s: %s", ip, err.Error())
				return nil
			}
			mu.Lock()
			located[ip] = city
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "ip lookups interrupted")
	}

	for ip := range uncached {
		city, ok := located[ip]
		if !ok {
			continue
		}
		if err := e.geoCache.Add(ip, &GeoInfo{Response: *city, FetchedAt: now}); err != nil {
			return err
		}
	}

	ispCount := make(map[string]uint64)
	dcCount := make(map[string]uint64)
	ispStake := make(map[string]uint64)
	dcStake := make(map[string]uint64)
	for _, v := range validators {
		city, ok := located[v.ip]
		if !ok {
			continue
		}
		isp := city.Traits.ISP
		dc := DatacenterIdentifier(city)
		ispCount[isp]++
		dcCount[dc]++
		ispStake[isp] += v.stake
		dcStake[dc] += v.stake
	}
	e.sink.SetGeolocation(ispCount, dcCount, ispStake, dcStake)
	return nil
}
