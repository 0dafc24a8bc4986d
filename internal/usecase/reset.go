package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/floodline/portal-api/internal/core/domain"
	"github.com/floodline/portal-api/internal/core/port"
	"github.com/floodline/portal-api/internal/infra/config"
	"github.com/floodline/portal-api/internal/infra/logger"
	"github.com/floodline/portal-api/internal/infra/security"
)

// ErrUnknownBaseline indicates the requested seed baseline does not exist in
// the catalog. No state change is attempted.
var ErrUnknownBaseline = errors.New("unknown seed baseline")

var resetDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "portal_db_reset_duration_seconds",
	Help:    "Duration of database reset runs by baseline and outcome.",
	Buckets: prometheus.DefBuckets,
}, []string{"baseline", "outcome"})

// ResetOptions tunes a reset run.
type ResetOptions struct {
	// TestMode skips the drop and migrate phases. Concurrent automated test
	// runs must not race on schema drop/recreate; truncation alone restores a
	// clean logical state while keeping the schema stable.
	TestMode bool
	// Identifier is an optional caller-supplied tag logged with the run.
	Identifier string
}

// ResetService resets the store to a named seed baseline and recreates the
// seed administrator. Callers must serialize reset requests externally; the
// service provides no mutual exclusion between concurrent resets.
type ResetService struct {
	schema   port.SchemaManager
	migrator port.Migrator
	users    port.UserRepository
	hasher   *security.PasswordHasher
	seed     config.SeedSettings
	log      *zap.Logger

	mu    sync.Mutex
	phase domain.ResetPhase
}

// NewResetService constructs a ResetService instance.
func NewResetService(schema port.SchemaManager, migrator port.Migrator, users port.UserRepository, hasher *security.PasswordHasher, seed config.SeedSettings, log *zap.Logger) *ResetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResetService{
		schema:   schema,
		migrator: migrator,
		users:    users,
		hasher:   hasher,
		seed:     seed,
		log:      log,
		phase:    domain.ResetPhaseIdle,
	}
}

// Phase reports the phase of the current (or last) reset run.
func (s *ResetService) Phase() domain.ResetPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ResetToBaseline resets the store to the named baseline.
//
// Full mode: drop every data table, re-apply all migrations (failure is
// fatal), truncate defensively, then seed. Test mode: truncate and seed only.
// Truncation failures per table are logged and skipped; everything else
// aborts the run and leaves the service in the failed phase.
func (s *ResetService) ResetToBaseline(ctx context.Context, baselineName string, opts ResetOptions) error {
	baseline, ok := domain.FindBaseline(baselineName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBaseline, baselineName)
	}

	s.log.Info("database reset started",
		zap.String("baseline", baseline.Name),
		zap.String("identifier", opts.Identifier),
		zap.Bool("test_mode", opts.TestMode),
	)

	started := time.Now()

	if err := s.run(ctx, baseline, opts); err != nil {
		s.setPhase(domain.ResetPhaseFailed)
		resetDuration.WithLabelValues(baseline.Name, "failed").Observe(time.Since(started).Seconds())
		s.log.Error("database reset failed",
			zap.String("baseline", baseline.Name),
			zap.String("identifier", opts.Identifier),
			zap.Error(err),
		)
		return err
	}

	s.setPhase(domain.ResetPhaseIdle)
	resetDuration.WithLabelValues(baseline.Name, "ok").Observe(time.Since(started).Seconds())
	s.log.Info("database reset completed",
		zap.String("baseline", baseline.Name),
		zap.String("identifier", opts.Identifier),
		zap.Duration("took", time.Since(started)),
	)

	return nil
}

func (s *ResetService) run(ctx context.Context, baseline domain.SeedBaseline, opts ResetOptions) error {
	if !opts.TestMode {
		if err := s.dropAll(ctx); err != nil {
			return err
		}
		if err := s.migrate(ctx); err != nil {
			return err
		}
	}

	if err := s.truncateAll(ctx); err != nil {
		return err
	}

	if err := s.seedAdmin(ctx); err != nil {
		return err
	}

	if baseline.SeedAdminOnly {
		return nil
	}

	// All catalog baselines currently stop at the seed administrator; richer
	// baselines would load their fixture data here.
	return nil
}

func (s *ResetService) dropAll(ctx context.Context) error {
	s.setPhase(domain.ResetPhaseDropping)

	tables, err := s.schema.ListTables(ctx)
	if err != nil {
		return err
	}

	for _, table := range tables {
		if err := s.schema.DropTable(ctx, table); err != nil {
			return err
		}
	}

	return nil
}

func (s *ResetService) migrate(ctx context.Context) error {
	s.setPhase(domain.ResetPhaseMigrating)

	if err := s.schema.ClearMigrationState(ctx); err != nil {
		return err
	}

	// A partial migration run must never pass as success; any failure here is
	// fatal to the whole reset.
	if err := s.migrator.Up(); err != nil {
		return err
	}

	return nil
}

func (s *ResetService) truncateAll(ctx context.Context) error {
	s.setPhase(domain.ResetPhaseTruncating)

	tables, err := s.schema.ListTables(ctx)
	if err != nil {
		return err
	}

	for _, table := range tables {
		// Best-effort cleanup: a single stubborn table should not sink the
		// whole reset.
		if err := s.schema.TruncateTable(ctx, table); err != nil {
			s.log.Warn("failed to truncate table, skipping",
				zap.String("table", table),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *ResetService) seedAdmin(ctx context.Context) error {
	s.setPhase(domain.ResetPhaseSeeding)

	digest, salt, err := s.hasher.Hash(s.seed.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	username := domain.NormalizeUsername(s.seed.AdminUsername)
	admin := domain.User{
		Username:       username,
		DisplayName:    domain.DisplayNameFromUsername(username),
		PasswordDigest: digest,
		Salt:           &salt,
		IsAdmin:        true,
	}

	if _, err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create seed administrator: %w", err)
	}

	s.log.Info("seed administrator created",
		zap.String("username", logger.MaskUsername(username)),
	)

	return nil
}

func (s *ResetService) setPhase(phase domain.ResetPhase) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
	s.log.Info("reset phase", zap.String("phase", string(phase)))
}
