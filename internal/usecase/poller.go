package usecase

import (
	"context"
	"fmt"
	"time"

	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/metrics"
)

// Poller runs a job on start, on every tick and whenever it is woken. Each
// run re-derives its work from stored state, so a missed or repeated run is harmless.
type Poller struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context) error
	wake     chan struct{}
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewPoller creates a new poller
func NewPoller(name string, interval time.Duration, job func(ctx context.Context) error, logger logger.Logger, metrics *metrics.Metrics) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		job:      job,
		wake:     make(chan struct{}, 1),
		logger:   logger,
		metrics:  metrics,
	}
}

// Name returns the poller name
func (p *Poller) Name() string {
	return p.name
}

// Start blocks until ctx is cancelled. The ticker is stopped before it returns.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("Poller started", "poller", p.name, "interval", p.interval.String())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopped", "poller", p.name)
			return nil
		case <-ticker.C:
			p.run(ctx)
		case <-p.wake:
			p.run(ctx)
		}
	}
}

// Wake asks for an immediate run; it never blocks
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poller panic: %v", r)
			p.logger.Error("Poller run panicked", "poller", p.name, "panic", r)
		}
		p.metrics.PollerRan(p.name, err)
	}()

	err = p.job(ctx)
	if err != nil && ctx.Err() == nil {
		p.logger.Error("Poller run failed", "poller", p.name, "error", err)
	}
}

// Pollers is the set of background pollers of the service
type Pollers []*Poller

// WakeAll asks every poller for an immediate run
func (ps Pollers) WakeAll() {
	for _, p := range ps {
		p.Wake()
	}
}
