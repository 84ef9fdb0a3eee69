// Package scheduler runs the periodic upstream health probe.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shelfgate/shelfgate/internal/config"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

const probeTimeout = 15 * time.Second

// UpstreamHealthScheduler periodically pings the upstream status endpoint
// and logs reachability together with the circuit breaker state. The probe
// doubles as a breaker recovery path: a successful trial call during the
// half-open window closes the breaker before device traffic arrives.
type UpstreamHealthScheduler struct {
	client *upstream.Client
	config config.HealthProbe

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

// NewUpstreamHealthScheduler creates a new scheduler instance.
func NewUpstreamHealthScheduler(client *upstream.Client, cfg config.HealthProbe) *UpstreamHealthScheduler {
	return &UpstreamHealthScheduler{
		client: client,
		config: cfg,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the probe is enabled.
func (s *UpstreamHealthScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Upstream health probe: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runProbe()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health probe: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	log.Printf("Upstream health probe: started with schedule '%s'", s.config.Schedule)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *UpstreamHealthScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for a running probe to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false

	log.Printf("Upstream health probe: stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *UpstreamHealthScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next probe will occur.
func (s *UpstreamHealthScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runProbe performs one status check against upstream.
func (s *UpstreamHealthScheduler) runProbe() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	start := time.Now()
	status, err := s.client.Status(ctx)
	if err != nil {
		log.Printf("Upstream health probe: unreachable (breaker %s): %v",
			s.client.BreakerState(), err)
		return
	}

	log.Printf("Upstream health probe: ok (app=%s version=%s breaker=%s took=%v)",
		status.App, status.ServerVersion, s.client.BreakerState(),
		time.Since(start).Round(time.Millisecond))
}
