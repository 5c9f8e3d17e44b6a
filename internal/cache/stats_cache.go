package cache

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/2beens/runlog/internal/runstats/runs"
	"github.com/2beens/runlog/internal/telemetry/metrics"

	"github.com/cespare/xxhash/v2"
	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

var _ Cache = (*StatsCache)(nil)

const (
	DefaultStatsCacheSize = 8 * 1024 * 1024
	DefaultStatsCacheTTL  = 5 * time.Minute
)

// StatsCache memoizes stats responses. Keys include a digest of the runs the
// response was computed from, so any change to the runs misses the cache and
// nothing needs to be invalidated explicitly.
type StatsCache struct {
	mainCache *freecache.Cache
	metrics   *metrics.Manager
}

// NewStatsCache creates a cache of sizeBytes (freecache keeps at least 512KB).
// metricsManager can be nil.
func NewStatsCache(sizeBytes int, metricsManager *metrics.Manager) *StatsCache {
	if sizeBytes <= 0 {
		sizeBytes = DefaultStatsCacheSize
	}
	return &StatsCache{
		mainCache: freecache.NewCache(sizeBytes),
		metrics:   metricsManager,
	}
}

func (sc *StatsCache) Get(key []byte) ([]byte, bool) {
	value, err := sc.mainCache.Get(key)
	if err != nil {
		sc.count("miss")
		return nil, false
	}
	sc.count("hit")
	return value, true
}

func (sc *StatsCache) Set(key, value []byte, ttl time.Duration) bool {
	if err := sc.mainCache.Set(key, value, int(ttl.Seconds())); err != nil {
		log.Warnf("stats cache, set %d bytes: %s", len(value), err)
		return false
	}
	return true
}

func (sc *StatsCache) Clear() {
	sc.mainCache.Clear()
}

func (sc *StatsCache) EntryCount() int64 {
	return sc.mainCache.EntryCount()
}

func (sc *StatsCache) count(outcome string) {
	if sc.metrics != nil {
		sc.metrics.CounterStatsCache.WithLabelValues(outcome).Inc()
	}
}

// StatsKey builds a cache key from the endpoint, its parameters and the digest
// of the run snapshot.
func StatsKey(endpoint, params string, snapshot uint64) []byte {
	key := make([]byte, 0, len(endpoint)+len(params)+10)
	key = append(key, endpoint...)
	key = append(key, '|')
	key = append(key, params...)
	key = append(key, '|')
	return binary.BigEndian.AppendUint64(key, snapshot)
}

// RunsDigest hashes the fields the stats depend on. The digest changes when a
// run is added, removed or edited, and with the order of records.
func RunsDigest(records []runs.Run) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}

	writeUint(uint64(len(records)))
	for _, r := range records {
		writeUint(uint64(r.ID))
		writeUint(uint64(r.Date.Year)<<16 | uint64(r.Date.Month)<<8 | uint64(r.Date.Day))
		writeUint(math.Float64bits(r.DistanceKm))
		writeUint(uint64(r.DurationSeconds))
		writeUint(uint64(r.Effort))
	}
	return d.Sum64()
}
