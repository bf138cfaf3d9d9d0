package listener

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/borgmon/transit-snoozer/pkg/bridge"
	"github.com/borgmon/transit-snoozer/pkg/metrics"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

// mirror forwards n to the foreground, queueing it when nobody is ready.
// Called with handleMu held.
func (s *Service) mirror(ctx context.Context, n models.IncomingNotification) {
	s.mu.Lock()
	queued := len(s.pending) > 0
	s.mu.Unlock()

	// keep order behind anything already waiting
	if !queued {
		err := s.bridge.PublishNotification(ctx, n)
		if err == nil {
			metrics.IncMirror("delivered")
			return
		}
		if !errors.Is(err, bridge.ErrNotReady) {
			s.logger.Warn("failed to mirror notification", "source", n.SourceApp, "err", err)
		}
	}

	s.enqueue(n)
}

func (s *Service) enqueue(n models.IncomingNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.pending = append(s.pending, n)
	if over := len(s.pending) - s.cfg.PendingLimit; over > 0 {
		s.pending = append([]models.IncomingNotification(nil), s.pending[over:]...)
		metrics.IncMirror("dropped")
		s.logger.Debug("pending queue full, dropped oldest", "dropped", over)
	}
	metrics.IncMirror("queued")
	metrics.SetPending(len(s.pending))

	if s.timer == nil {
		s.retry.Reset()
		s.scheduleLocked()
	}
}

// scheduleLocked arms the next flush attempt, or gives up when the retry
// policy is exhausted. Queued items then wait for a readiness signal.
func (s *Service) scheduleLocked() {
	s.timerGen++
	d := s.retry.NextBackOff()
	if d == backoff.Stop {
		s.timer = nil
		s.logger.Debug("foreground still not ready, waiting for readiness", "pending", len(s.pending))
		return
	}
	gen := s.timerGen
	s.timer = time.AfterFunc(d, func() { s.retryFlush(gen) })
}

func (s *Service) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Service) retryFlush(gen uint64) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	s.mu.Lock()
	stale := gen != s.timerGen
	s.mu.Unlock()
	if stale {
		return
	}

	done := s.flush(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	if done || s.closed || len(s.pending) == 0 {
		s.cancelTimerLocked()
		return
	}
	s.scheduleLocked()
}

// flushNow runs on a readiness confirmation
func (s *Service) flushNow(ctx context.Context) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	s.mu.Lock()
	s.cancelTimerLocked()
	s.mu.Unlock()

	if !s.flush(ctx) {
		s.mu.Lock()
		if !s.closed && len(s.pending) > 0 && s.timer == nil {
			s.retry.Reset()
			s.scheduleLocked()
		}
		s.mu.Unlock()
	}
}

// flush delivers queued notifications in order. It reports whether the
// queue is empty afterwards.
func (s *Service) flush(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return true
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return true
	}

	sent := 0
	for _, n := range batch {
		if err := s.bridge.PublishNotification(ctx, n); err != nil {
			if !errors.Is(err, bridge.ErrNotReady) {
				s.logger.Warn("failed to flush pending notification", "source", n.SourceApp, "err", err)
			}
			break
		}
		sent++
		metrics.IncMirror("delivered")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rest := batch[sent:]
	if len(rest) > 0 {
		s.pending = append(append([]models.IncomingNotification(nil), rest...), s.pending...)
	}
	metrics.SetPending(len(s.pending))
	if sent > 0 {
		s.logger.Debug("flushed pending notifications", "sent", sent, "remaining", len(s.pending))
	}
	return len(s.pending) == 0
}
