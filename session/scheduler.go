package session

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler refreshes a Holder periodically.
type Scheduler struct {
	holder  *Holder
	cron    *cron.Cron
	entry   cron.EntryID
	timeout time.Duration
	logger  logging.Logger
}

// NewScheduler registers a refresh for the cron spec (standard five field
// syntax or descriptors such as "@every 15m").
func NewScheduler(h *Holder, spec string, timeout time.Duration, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Scheduler{holder: h, cron: cron.New(), timeout: timeout, logger: logger}
	id, err := s.cron.AddFunc(spec, func() { _ = s.RefreshNow() })
	if err != nil {
		return nil, err
	}
	s.entry = id
	return s, nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and returns a context done once a running refresh
// completes.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

// Next returns the next scheduled refresh time (zero before Start).
func (s *Scheduler) Next() time.Time { return s.cron.Entry(s.entry).Next }

// RefreshNow performs one refresh. A logged-out session is skipped, and a
// refresh overtaken by a login or logout is not an error.
func (s *Scheduler) RefreshNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.holder.Refresh(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrLoggedOut):
		s.logger.Debug("Skipping scheduled refresh for logged-out session")
		return nil
	case errors.Is(err, ErrStaleRefresh):
		s.logger.Debug("Scheduled refresh superseded by a session change")
		return nil
	default:
		s.logger.Warn("Scheduled refresh failed", "error", err)
		return err
	}
}
