// Package store keeps a history of benchmark runs in a SQL database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/config"
	"github.com/ethpandaops/runtimeoor/pkg/matrix"
	"github.com/ethpandaops/runtimeoor/pkg/orderedmap"
	"github.com/ethpandaops/runtimeoor/pkg/stats"
	"github.com/ethpandaops/runtimeoor/pkg/sysinfo"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store persists result matrices.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// SaveMatrix stores m under runID, replacing a previous run with the
	// same ID.
	SaveMatrix(ctx context.Context, runID string, m *matrix.ResultMatrix) error
	ListRuns(ctx context.Context) ([]Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	// GetMatrix rebuilds the stored matrix in measurement order.
	GetMatrix(ctx context.Context, runID string) (*matrix.ResultMatrix, error)
}

// Ensure interface compliance.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a Store backed by the configured database driver.
func NewStore(log logrus.FieldLogger, cfg *config.DatabaseConfig) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dialector = postgres.Open(fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		))
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if s.cfg.Driver == "sqlite" {
		// SQLite allows one writer; ":memory:" databases are per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("getting underlying db: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(&Run{}, &Cell{}); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Results database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

func (s *store) SaveMatrix(ctx context.Context, runID string, m *matrix.ResultMatrix) error {
	if runID == "" {
		return errors.New("run id is required")
	}

	run, cells, err := flatten(runID, m)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&Cell{}).Error; err != nil {
			return fmt.Errorf("deleting previous cells: %w", err)
		}

		if err := tx.Where("run_id = ?", runID).Delete(&Run{}).Error; err != nil {
			return fmt.Errorf("deleting previous run: %w", err)
		}

		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		if len(cells) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(cells, 100).Error; err != nil {
			return fmt.Errorf("inserting cells: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"run_id": runID,
		"cells":  len(cells),
	}).Debug("Stored run")

	return nil
}

func (s *store) ListRuns(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

func (s *store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run

	err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	return &run, nil
}

func (s *store) GetMatrix(ctx context.Context, runID string) (*matrix.ResultMatrix, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var cells []Cell
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("position ASC").
		Find(&cells).Error; err != nil {
		return nil, fmt.Errorf("listing cells: %w", err)
	}

	return rebuild(run, cells)
}

// flatten converts a matrix into database rows.
func flatten(runID string, m *matrix.ResultMatrix) (*Run, []*Cell, error) {
	runtimesJSON, err := json.Marshal(m.Runtimes)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding runtimes: %w", err)
	}

	run := &Run{
		RunID:        runID,
		Timestamp:    m.Metadata.Timestamp,
		TimestampEnd: m.Metadata.TimestampEnd,
		NumTrials:    m.Metadata.NumTrials,
		WarmupRuns:   m.Metadata.WarmupRuns,
		Platform:     m.Metadata.Platform,
		Workloads:    m.Benchmarks.Len(),
		Runtimes:     m.Runtimes.Len(),
		RuntimesJSON: string(runtimesJSON),
		StoredAt:     time.Now().UTC(),
	}

	if sys := m.Metadata.System; sys != nil {
		data, err := json.Marshal(sys)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding system info: %w", err)
		}

		run.Hostname = sys.Hostname
		run.SystemJSON = string(data)
	}

	cells := make([]*Cell, 0, m.CellCount())

	for workload, row := range m.Benchmarks.All() {
		for runtime, cs := range row.All() {
			if cs == nil {
				continue
			}

			times, err := json.Marshal(cs.Times)
			if err != nil {
				return nil, nil, fmt.Errorf("encoding times of %s/%s: %w", workload, runtime, err)
			}

			cell := &Cell{
				RunID:          runID,
				Workload:       workload,
				Runtime:        runtime,
				Position:       len(cells),
				Average:        cs.Average,
				Min:            cs.Min,
				Max:            cs.Max,
				StdDev:         cs.StdDev,
				NumTrials:      cs.NumTrials,
				WarmupRuns:     cs.WarmupRuns,
				LastReturnCode: cs.LastReturnCode,
				LastStdout:     cs.LastStdout,
				LastStderr:     cs.LastStderr,
				Error:          cs.Error,
				TimesJSON:      string(times),
			}

			if cs.Usage != nil {
				usage, err := json.Marshal(cs.Usage)
				if err != nil {
					return nil, nil, fmt.Errorf("encoding usage of %s/%s: %w", workload, runtime, err)
				}

				cell.UsageJSON = string(usage)
			}

			if cs.Failed() {
				run.Failures++
			}

			cells = append(cells, cell)
		}
	}

	run.Cells = len(cells)

	return run, cells, nil
}

// rebuild assembles a matrix from database rows ordered by position.
func rebuild(run *Run, cells []Cell) (*matrix.ResultMatrix, error) {
	m := matrix.New(matrix.Metadata{
		Timestamp:    run.Timestamp,
		TimestampEnd: run.TimestampEnd,
		NumTrials:    run.NumTrials,
		WarmupRuns:   run.WarmupRuns,
		Platform:     run.Platform,
	})

	if run.RuntimesJSON != "" {
		rts := orderedmap.New[*matrix.RuntimeInfo]()
		if err := json.Unmarshal([]byte(run.RuntimesJSON), rts); err != nil {
			return nil, fmt.Errorf("decoding runtimes: %w", err)
		}

		m.Runtimes = rts
	}

	if run.SystemJSON != "" {
		var sys sysinfo.SystemInfo
		if err := json.Unmarshal([]byte(run.SystemJSON), &sys); err != nil {
			return nil, fmt.Errorf("decoding system info: %w", err)
		}

		m.Metadata.System = &sys
	}

	for _, c := range cells {
		cs := &stats.CellStatistics{
			Times:          []float64{},
			Average:        c.Average,
			Min:            c.Min,
			Max:            c.Max,
			StdDev:         c.StdDev,
			NumTrials:      c.NumTrials,
			WarmupRuns:     c.WarmupRuns,
			LastStdout:     c.LastStdout,
			LastStderr:     c.LastStderr,
			LastReturnCode: c.LastReturnCode,
			Error:          c.Error,
		}

		if c.TimesJSON != "" {
			if err := json.Unmarshal([]byte(c.TimesJSON), &cs.Times); err != nil {
				return nil, fmt.Errorf("decoding times of %s/%s: %w", c.Workload, c.Runtime, err)
			}
		}

		if c.UsageJSON != "" {
			cs.Usage = &stats.Usage{}
			if err := json.Unmarshal([]byte(c.UsageJSON), cs.Usage); err != nil {
				return nil, fmt.Errorf("decoding usage of %s/%s: %w", c.Workload, c.Runtime, err)
			}
		}

		m.Set(c.Workload, c.Runtime, cs)
	}

	return m, nil
}
