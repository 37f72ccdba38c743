package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/placements/internal/domain"
	"github.com/yourorg/placements/internal/featureflags"
	"github.com/yourorg/placements/internal/observability/metrics"
	"github.com/yourorg/placements/internal/service"
)

// StaffSyncWorker periodically refreshes long-unsynced users from the staff
// directory so names, regions and team data do not drift from upstream.
type StaffSyncWorker struct {
	userRepo    domain.UserRepository
	userService *service.UserService
	flags       *featureflags.Flags
	logger      *slog.Logger
	interval    time.Duration
	staleness   time.Duration
	batchSize   int
}

// NewStaffSyncWorker creates a new staff sync worker
func NewStaffSyncWorker(
	userRepo domain.UserRepository,
	userService *service.UserService,
	flags *featureflags.Flags,
	logger *slog.Logger,
	interval time.Duration,
) *StaffSyncWorker {
	return &StaffSyncWorker{
		userRepo:    userRepo,
		userService: userService,
		flags:       flags,
		logger:      logger,
		interval:    interval,
		staleness:   24 * time.Hour,
		batchSize:   20,
	}
}

// Start begins the sync loop. It runs until the context is cancelled.
func (w *StaffSyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("staff sync worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("staff sync worker stopped")
			return
		case <-ticker.C:
			w.syncStaleUsers(ctx)
		}
	}
}

// syncStaleUsers refreshes one batch of the longest-unsynced users
func (w *StaffSyncWorker) syncStaleUsers(ctx context.Context) {
	if !w.flags.Enabled(ctx, "staff_sync") {
		return
	}

	start := time.Now()
	defer func() { metrics.ObserveStaffSyncPass(time.Since(start)) }()

	cutoff := time.Now().Add(-w.staleness)
	users, err := w.userRepo.GetActiveUsersUpdatedBefore(cutoff, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list stale users", slog.String("error", err.Error()))
		metrics.ObserveStaffSync("list_error")
		return
	}

	for _, user := range users {
		serviceName := domain.ServiceTemporaryAccommodation
		if user.HasAnyRole(domain.RolesForService(domain.ServiceApprovedPremises)...) {
			serviceName = domain.ServiceApprovedPremises
		}

		result, err := w.userService.UpdateUser(ctx, user.ID, serviceName)
		if err != nil {
			w.logger.Error("staff sync failed",
				slog.String("username", user.DeliusUsername),
				slog.String("error", err.Error()),
			)
			metrics.ObserveStaffSync("error")
			continue
		}

		switch result.Kind {
		case domain.UpdateUserOK:
			metrics.ObserveStaffSync("ok")
		case domain.UpdateUserStaffRecordNotFound:
			// The staff record disappearing upstream is worth surfacing but
			// not acting on automatically.
			w.logger.Warn("staff record gone upstream",
				slog.String("username", user.DeliusUsername),
			)
			metrics.ObserveStaffSync("staff_record_not_found")
		case domain.UpdateUserNotFound:
			metrics.ObserveStaffSync("user_not_found")
		}
	}
}
