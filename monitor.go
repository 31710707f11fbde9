package surveillance

import (
	"sync"
	"time"

	"github.com/armon/go-metrics"
	log "github.com/sirupsen/logrus"
)

// MonitorStatus is the lifecycle state of a Monitor
type MonitorStatus string

// Monitor lifecycle states
const (
	MonitorStopped MonitorStatus = "stopped"
	MonitorRunning MonitorStatus = "running"
)

// Defaults for the monitor cycle
const (
	DefaultInterval = 30 * time.Second
	DefaultWorkers  = 4
)

type (
	// MonitorConfig tunes a Monitor
	MonitorConfig struct {
		// Interval between cycles; DefaultInterval when zero
		Interval time.Duration
		// Workers bounds how many probes run concurrently; DefaultWorkers
		// when zero
		Workers int
		// CacheTTL overrides how long probe snapshots are cached; when zero
		// the cycle interval is used so every cycle sees fresh counters
		CacheTTL time.Duration
		// Metrics optionally receives per-cycle counters and timings
		Metrics *metrics.Metrics
	}

	// Monitor owns the surveillance loop: every interval it probes all
	// auto-activate selections, updates their activity bookkeeping, asks the
	// arbitration policy which selection should be active and applies the
	// change through the Activator. Errors within a cycle are logged and
	// never terminate the loop.
	Monitor struct {
		ctx       *Context
		probe     *Probe
		activator *Activator
		interval  time.Duration
		workers   int
		metrics   *metrics.Metrics

		mu      sync.Mutex
		running bool
		stop    chan struct{}
		done    chan struct{}

		stateMu   sync.Mutex
		lastCycle time.Time
		snapshots map[string]*ActivitySnapshot
		lastErrs  map[string]string
	}

	// TrafficSummary is the externally visible view of the controller: all
	// selections, their latest snapshots, the active resource and the loop
	// state.
	TrafficSummary struct {
		Selections       Selections                   `json:"selections"`
		Snapshots        map[string]*ActivitySnapshot `json:"snapshots"`
		ActiveResourceID string                       `json:"active_resource_id,omitempty"`
		MonitorStatus    MonitorStatus                `json:"monitor_status"`
		LastCycleAt      *time.Time                   `json:"last_cycle_at,omitempty"`
		LastErrors       map[string]string            `json:"last_errors,omitempty"`
	}

	probeResult struct {
		resourceID string
		snap       *ActivitySnapshot
		err        error
	}
)

// NewMonitor creates a Monitor within the context
func (c *Context) NewMonitor(client ResourceClient, conf MonitorConfig) *Monitor {
	if conf.Interval <= 0 {
		conf.Interval = DefaultInterval
	}
	if conf.Workers <= 0 {
		conf.Workers = DefaultWorkers
	}

	// cache within a cycle, reprobe across cycles
	cacheTTL := conf.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = conf.Interval
		if cacheTTL > DefaultCacheTTL {
			cacheTTL = DefaultCacheTTL
		}
	}

	return &Monitor{
		ctx:       c,
		probe:     NewProbe(client, cacheTTL),
		activator: c.NewActivator(client),
		interval:  conf.Interval,
		workers:   conf.Workers,
		metrics:   conf.Metrics,
		snapshots: map[string]*ActivitySnapshot{},
		lastErrs:  map[string]string{},
	}
}

// Probe exposes the monitor's probe for on-demand traffic detection
func (m *Monitor) Probe() *Probe {
	return m.probe
}

// Activator exposes the monitor's activator for on-demand activation
func (m *Monitor) Activator() *Activator {
	return m.activator
}

// Interval returns the cycle interval
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Start begins the periodic cycle. It is idempotent if already running.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(m.stop, m.done)

	log.WithFields(log.Fields{
		"func":     "surveillance.Monitor.Start",
		"interval": m.interval,
	}).Info("monitoring started")
}

// Stop halts the loop at the next cycle boundary and waits for it to exit.
// An in-flight cycle, including an in-flight activation, completes first.
// It is idempotent if already stopped.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.stop)
	<-m.done
	m.running = false

	log.WithField("func", "surveillance.Monitor.Stop").Info("monitoring stopped")
}

// Status reports whether the loop is running or stopped
func (m *Monitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return MonitorRunning
	}
	return MonitorStopped
}

// LastCycle returns when the last cycle finished, zero before the first one
func (m *Monitor) LastCycle() time.Time {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.lastCycle
}

// Snapshots returns a copy of the latest snapshot per resource
func (m *Monitor) Snapshots() map[string]*ActivitySnapshot {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	snaps := make(map[string]*ActivitySnapshot, len(m.snapshots))
	for k, v := range m.snapshots {
		snaps[k] = v
	}
	return snaps
}

// TrafficSummary assembles the current selections, snapshots, active resource
// and loop state into one view.
func (m *Monitor) TrafficSummary() (*TrafficSummary, error) {
	selections, err := m.ctx.Selections()
	if err != nil {
		return nil, err
	}

	summary := &TrafficSummary{
		Selections:    selections,
		Snapshots:     m.Snapshots(),
		MonitorStatus: m.Status(),
	}

	for _, s := range selections {
		if s.IsActive {
			summary.ActiveResourceID = s.ResourceID
			break
		}
	}

	m.stateMu.Lock()
	if !m.lastCycle.IsZero() {
		t := m.lastCycle
		summary.LastCycleAt = &t
	}
	if len(m.lastErrs) > 0 {
		summary.LastErrors = make(map[string]string, len(m.lastErrs))
		for k, v := range m.lastErrs {
			summary.LastErrors[k] = v
		}
	}
	m.stateMu.Unlock()

	return summary, nil
}

func (m *Monitor) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.cycle()
		select {
		case <-stop:
			return
		case <-ticker.C:
			// a stop racing the tick wins, no extra cycle
			select {
			case <-stop:
				return
			default:
			}
		}
	}
}

// cycle runs one full probe/arbitrate/activate pass. Every failure is logged
// with resource context and the cycle carries on.
func (m *Monitor) cycle() {
	start := time.Now()
	if m.metrics != nil {
		defer m.metrics.MeasureSince([]string{"monitor", "cycle"}, start)
		m.metrics.IncrCounter([]string{"monitor", "cycles"}, 1)
	}
	defer func() {
		m.stateMu.Lock()
		m.lastCycle = time.Now()
		m.stateMu.Unlock()
	}()

	selections, err := m.ctx.Selections()
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"func":  "surveillance.Context.Selections",
		}).Error("failed to list selections")
		return
	}
	if len(selections) == 0 {
		return
	}

	snapshots := m.probeAll(selections)
	m.writeBack(selections, snapshots)

	var currentActive *Selection
	for _, s := range selections {
		if s.IsActive {
			currentActive = s
			break
		}
	}

	target := Decide(selections, snapshots, currentActive)
	if !activeChanged(currentActive, target) {
		return
	}
	if target == nil {
		// the policy never forces a deactivation
		return
	}

	result, err := m.activator.Activate(target)
	if err != nil {
		log.WithFields(log.Fields{
			"error":    err,
			"func":     "surveillance.Activator.Activate",
			"resource": target.ResourceID,
		}).Error("activation failed")
		m.setLastError(target.ResourceID, err)
		return
	}
	if m.metrics != nil {
		m.metrics.IncrCounter([]string{"monitor", "activations"}, 1)
	}
	log.WithFields(log.Fields{
		"resource": result.ResourceID,
		"opened":   result.Opened,
		"started":  len(result.Started),
		"failed":   len(result.Failed),
	}).Info("selection activated")
}

// probeAll runs the activity probe over every auto-activate selection with
// bounded concurrency and collects the successful snapshots.
func (m *Monitor) probeAll(selections Selections) map[string]*ActivitySnapshot {
	results := make(chan probeResult)
	sem := make(chan struct{}, m.workers)
	var wg sync.WaitGroup

	for _, s := range selections {
		if !s.AutoActivate {
			continue
		}
		wg.Add(1)
		go func(resourceID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			snap, err := m.probe.Detect(resourceID)
			results <- probeResult{resourceID: resourceID, snap: snap, err: err}
		}(s.ResourceID)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	snapshots := map[string]*ActivitySnapshot{}
	for r := range results {
		if r.err != nil {
			// stale bookkeeping is kept until the next successful probe
			log.WithFields(log.Fields{
				"error":    r.err,
				"func":     "surveillance.Probe.Detect",
				"resource": r.resourceID,
			}).Error("probe failed")
			m.setLastError(r.resourceID, r.err)
			if m.metrics != nil {
				m.metrics.IncrCounter([]string{"monitor", "probe", "errors"}, 1)
			}
			continue
		}
		m.clearLastError(r.resourceID)
		snapshots[r.resourceID] = r.snap
	}

	m.stateMu.Lock()
	for id, snap := range snapshots {
		m.snapshots[id] = snap
	}
	m.stateMu.Unlock()

	return snapshots
}

// writeBack persists each selection's activity bookkeeping, best effort
func (m *Monitor) writeBack(selections Selections, snapshots map[string]*ActivitySnapshot) {
	for _, s := range selections {
		snap, ok := snapshots[s.ResourceID]
		if !ok {
			continue
		}

		changed := s.ActivityDetected != snap.HasActivity
		s.ActivityDetected = snap.HasActivity
		if snap.HasActivity {
			t := snap.ObservedAt
			s.LastActivityAt = &t
			changed = true
		}
		if !changed {
			continue
		}

		if err := s.Save(); err != nil {
			log.WithFields(log.Fields{
				"error":    err,
				"func":     "surveillance.Selection.Save",
				"resource": s.ResourceID,
			}).Error("failed to save selection")
		}
	}
}

func (m *Monitor) setLastError(resourceID string, err error) {
	m.stateMu.Lock()
	m.lastErrs[resourceID] = err.Error()
	m.stateMu.Unlock()
}

func (m *Monitor) clearLastError(resourceID string) {
	m.stateMu.Lock()
	delete(m.lastErrs, resourceID)
	m.stateMu.Unlock()
}

// activeChanged compares the current and target active selections by
// resource id, treating nil as distinct from any selection.
func activeChanged(current, target *Selection) bool {
	switch {
	case current == nil && target == nil:
		return false
	case current == nil || target == nil:
		return true
	default:
		return current.ResourceID != target.ResourceID
	}
}
