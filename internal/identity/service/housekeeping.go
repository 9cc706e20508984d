package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nexhire/nexhire/internal/identity/store"
)

// HousekeepingService periodically deletes expired records so otp_codes,
// refresh_tokens and the access-token deny-list stay bounded.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the worker. A non-positive interval
// defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, waiting for any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs each deletion independently; one failing does not stop the rest.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	if err := s.Store.OTPCodes().DeleteExpiredOTPCodes(ctx); err != nil {
		s.Logger.Error("failed to delete expired verification codes", "error", err)
	}
	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}
	if err := s.Store.RevokedAccessTokens().DeleteExpiredRevocations(ctx); err != nil {
		s.Logger.Error("failed to delete expired access-token revocations", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
