package surveillance

import (
	"sync"
	"time"
)

// ActivityLevel classifies how much traffic a resource's nodes are seeing
type ActivityLevel string

// Activity levels, ordered none < low < medium < high
const (
	ActivityNone   ActivityLevel = "none"
	ActivityLow    ActivityLevel = "low"
	ActivityMedium ActivityLevel = "medium"
	ActivityHigh   ActivityLevel = "high"
)

// Classification thresholds in total bytes (received + sent) across all
// polled interfaces. Strictly-greater-than at every boundary.
const (
	highActivityBytes   = 1000000
	mediumActivityBytes = 100000
)

// DefaultCacheTTL is how long a snapshot is served from cache before a
// resource is probed again
const DefaultCacheTTL = 5 * time.Minute

type (
	// ActivitySnapshot is the ephemeral result of one probe
	ActivitySnapshot struct {
		ResourceID    string            `json:"resource_id"`
		HasActivity   bool              `json:"has_activity"`
		ActivityLevel ActivityLevel     `json:"activity_level"`
		ObservedAt    time.Time         `json:"observed_at"`
		RawStats      map[string]uint64 `json:"raw_stats"`
	}

	// Probe queries a resource's live node statistics and classifies its
	// activity level. Snapshots are cached for a short window to avoid
	// redundant probes.
	Probe struct {
		client ResourceClient
		ttl    time.Duration

		mu    sync.Mutex
		cache map[string]*ActivitySnapshot
	}
)

// ClassifyActivity maps a total byte count to an activity level
func ClassifyActivity(totalBytes uint64) ActivityLevel {
	switch {
	case totalBytes > highActivityBytes:
		return ActivityHigh
	case totalBytes > mediumActivityBytes:
		return ActivityMedium
	case totalBytes > 0:
		return ActivityLow
	default:
		return ActivityNone
	}
}

// NewProbe creates a Probe around client. A cacheTTL of zero means
// DefaultCacheTTL.
func NewProbe(client ResourceClient, cacheTTL time.Duration) *Probe {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Probe{
		client: client,
		ttl:    cacheTTL,
		cache:  map[string]*ActivitySnapshot{},
	}
}

// Detect returns the activity snapshot for a resource, serving a cached one
// when it is younger than the cache TTL.
func (p *Probe) Detect(resourceID string) (*ActivitySnapshot, error) {
	p.mu.Lock()
	cached, ok := p.cache[resourceID]
	p.mu.Unlock()

	if ok && time.Since(cached.ObservedAt) < p.ttl {
		return cached, nil
	}
	return p.Refresh(resourceID)
}

// Refresh probes a resource regardless of cache state and stores the result
func (p *Probe) Refresh(resourceID string) (*ActivitySnapshot, error) {
	snap, err := p.probe(resourceID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[resourceID] = snap
	p.mu.Unlock()
	return snap, nil
}

// Invalidate drops any cached snapshot for a resource
func (p *Probe) Invalidate(resourceID string) {
	p.mu.Lock()
	delete(p.cache, resourceID)
	p.mu.Unlock()
}

func (p *Probe) probe(resourceID string) (*ActivitySnapshot, error) {
	nodes, err := p.client.ListNodes(resourceID)
	if err != nil {
		return p.fallback(resourceID, err)
	}

	raw := map[string]uint64{}
	var total uint64
	for _, node := range nodes {
		if node.Status != NodeStarted {
			continue
		}
		stats, err := p.client.GetNodeStats(resourceID, node.ID)
		if err != nil {
			// a transient stats failure is not evidence of silence
			return p.fallback(resourceID, err)
		}
		for iface, counters := range stats.Interfaces {
			bytes := counters.BytesReceived + counters.BytesSent
			raw[node.Name+"/"+iface] = bytes
			total += bytes
		}
	}

	level := ClassifyActivity(total)
	return &ActivitySnapshot{
		ResourceID:    resourceID,
		HasActivity:   level != ActivityNone,
		ActivityLevel: level,
		ObservedAt:    time.Now().UTC(),
		RawStats:      raw,
	}, nil
}

// fallback degrades to a coarse signal when node statistics cannot be
// queried: an open resource is assumed to carry low activity, a closed one
// none. If even the status lookup fails the probe errors out and the caller
// keeps its previous view.
func (p *Probe) fallback(resourceID string, cause error) (*ActivitySnapshot, error) {
	status, err := p.client.Status(resourceID)
	if err != nil {
		return nil, &OperationError{Op: "probe", Resource: resourceID, Err: cause}
	}

	snap := &ActivitySnapshot{
		ResourceID:    resourceID,
		ObservedAt:    time.Now().UTC(),
		RawStats:      map[string]uint64{},
		ActivityLevel: ActivityNone,
	}
	if status == StatusOpened {
		snap.HasActivity = true
		snap.ActivityLevel = ActivityLow
	}
	return snap, nil
}
