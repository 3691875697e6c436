// Package coordinator periodically refreshes the snapshot and keeps the most
// recent successful one.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/raterudder/luzygas/pkg/log"
	"github.com/raterudder/luzygas/pkg/types"
)

const defaultInterval = time.Hour

// Fetcher fetches a complete snapshot.
type Fetcher interface {
	FetchAll(ctx context.Context) (*types.Snapshot, error)
}

// Listener is called with every newly published snapshot.
type Listener func(ctx context.Context, snap *types.Snapshot)

// UpdateFailedError is returned when a refresh fails. The previous snapshot
// stays published.
type UpdateFailedError struct {
	Err error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("error fetching data: %v", e.Err)
}

func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}

// Status describes the most recent refreshes.
type Status struct {
	LastAttempt time.Time `json:"lastAttempt"`
	LastSuccess time.Time `json:"lastSuccess"`
	LastError   string    `json:"lastError,omitempty"`
	Interval    string    `json:"interval"`
	Contracts   int       `json:"contracts"`
	Success     bool      `json:"success"`
}

// Coordinator owns the current snapshot. Only one refresh runs at a time and
// readers never block on a refresh.
type Coordinator struct {
	fetcher  Fetcher
	interval time.Duration
	snapshot atomic.Pointer[types.Snapshot]

	refreshMu sync.Mutex

	mu        sync.Mutex
	status    Status
	listeners []Listener
}

// New returns a Coordinator refreshing from f every interval.
func New(f Fetcher, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Coordinator{
		fetcher:  f,
		interval: interval,
	}
}

// Configured sets up flags for the coordinator and returns the instance.
func Configured(f Fetcher) *Coordinator {
	c := New(f, defaultInterval)
	interval := lflag.Duration("update-interval", defaultInterval, "How often to fetch new data from Repsol")
	lflag.Do(func() {
		if *interval <= 0 {
			log.Ctx(context.Background()).Error("update-interval must be positive")
			os.Exit(1)
		}
		c.interval = *interval
	})
	return c
}

// AddListener registers l to be called after every successful refresh.
func (c *Coordinator) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Snapshot returns the most recent successful snapshot or nil.
func (c *Coordinator) Snapshot() *types.Snapshot {
	return c.snapshot.Load()
}

// Status returns the status of the most recent refreshes.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.Interval = c.interval.String()
	return s
}

// Refresh fetches a new snapshot and publishes it. On failure it returns an
// *UpdateFailedError and the previous snapshot remains.
func (c *Coordinator) Refresh(ctx context.Context) (*types.Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := time.Now()
	c.mu.Lock()
	c.status.LastAttempt = start
	c.mu.Unlock()

	snap, err := c.fetcher.FetchAll(ctx)
	if err == nil && snap == nil {
		err = fmt.Errorf("no data returned")
	}
	if err != nil {
		c.mu.Lock()
		c.status.LastError = err.Error()
		c.status.Success = false
		c.mu.Unlock()
		log.Ctx(ctx).ErrorContext(ctx, "failed to refresh data", slog.Any("error", err))
		return nil, &UpdateFailedError{Err: err}
	}

	c.snapshot.Store(snap)

	c.mu.Lock()
	c.status.LastSuccess = time.Now()
	c.status.LastError = ""
	c.status.Success = true
	c.status.Contracts = len(snap.Contracts)
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	log.Ctx(ctx).InfoContext(ctx, "refreshed data",
		slog.Int("contracts", len(snap.Contracts)),
		slog.Duration("took", time.Since(start)),
	)

	for _, l := range listeners {
		l(ctx, snap)
	}
	return snap, nil
}

// Run refreshes immediately and then every interval until ctx is done. Failed
// refreshes are logged and retried at the next interval.
func (c *Coordinator) Run(ctx context.Context) error {
	// the first refresh failing isn't fatal, we keep trying on the interval
	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).InfoContext(ctx, "stopping coordinator")
			return nil
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}
