package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Audit event types recorded by the identity surface.
const (
	EventRegistrationStarted  = "registration.started"
	EventRegistrationVerified = "registration.verified"
	EventLogin                = "session.login"
	EventLoginFailed          = "session.login_failed"
	EventLoginBlocked         = "session.login_blocked"
	EventLogout               = "session.logout"
	EventTokenRefreshed       = "session.token_refreshed"
	EventResetRequested       = "recovery.reset_requested"
	EventPasswordReset        = "recovery.password_reset"
	EventPasswordChanged      = "recovery.password_changed"
)

// AuditEvent is one security-relevant occurrence. Identifier is always the
// masked form; raw contact values never enter the audit stream.
type AuditEvent struct {
	Time       time.Time
	Type       string
	AccountID  string
	Identifier string
}

// AuditService records events asynchronously through a buffered channel so
// emitting never blocks a request. When the buffer is full events are
// dropped and counted rather than queued.
type AuditService struct {
	Logger *slog.Logger

	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewAuditService starts the background writer. bufferSize bounds how many
// events can be in flight; it defaults to 256.
func NewAuditService(logger *slog.Logger, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	s := &AuditService{
		Logger: logger,
		ch:     make(chan AuditEvent, bufferSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AuditService) run() {
	defer s.wg.Done()
	for {
		select {
		case ev := <-s.ch:
			s.write(ev)
		case <-s.done:
			// Drain whatever is buffered before exiting.
			for {
				select {
				case ev := <-s.ch:
					s.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *AuditService) write(ev AuditEvent) {
	s.Logger.LogAttrs(context.Background(), slog.LevelInfo, "audit",
		slog.Time("at", ev.Time),
		slog.String("event", ev.Type),
		slog.String("account_id", ev.AccountID),
		slog.String("identifier", ev.Identifier),
	)
}

// Emit records an event. Safe on a nil receiver so callers never need to
// guard for a disabled audit stream.
func (s *AuditService) Emit(ctx context.Context, eventType, accountID, identifier string) {
	if s == nil {
		return
	}
	ev := AuditEvent{
		Time:       time.Now(),
		Type:       eventType,
		AccountID:  accountID,
		Identifier: identifier,
	}
	select {
	case s.ch <- ev:
	case <-s.done:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (s *AuditService) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

// Close stops the writer after draining the buffer.
func (s *AuditService) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		if n := s.dropped.Load(); n > 0 {
			s.Logger.Warn("audit events dropped", slog.Uint64("count", n))
		}
	})
}
