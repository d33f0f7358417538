// Package journal persists fleet events to a SQL database.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
)

// EventRecord is one persisted fleet event.
type EventRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SessionID string    `gorm:"size:36;index" json:"session_id"`
	Tick      uint64    `gorm:"index" json:"tick"`
	Kind      string    `gorm:"size:32;index" json:"kind"`
	Agent     int       `json:"agent"`
	Vertex    int       `json:"vertex"`
	Message   string    `gorm:"size:255" json:"message"`
}

// Options tune batching.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Open connects to the database. Driver is "sqlite" or "mysql"; sqlite uses
// the pure Go driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn})
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("journal: unknown driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Journal buffers events from fleet snapshots and writes them in batches.
type Journal struct {
	db      *gorm.DB
	log     *slog.Logger
	session string
	opts    Options

	mu   sync.Mutex
	buf  []EventRecord
	kick chan struct{}
}

// New migrates the schema and starts a new session.
func New(db *gorm.DB, opts Options, log *slog.Logger) (*Journal, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	j := &Journal{
		db:      db,
		log:     log,
		session: uuid.NewString(),
		opts:    opts,
		buf:     make([]EventRecord, 0, opts.BatchSize*2),
		kick:    make(chan struct{}, 1),
	}
	log.Info("journal session started", "session", j.session)
	return j, nil
}

// Session returns this run's session id.
func (j *Journal) Session() string { return j.session }

// Publish buffers the snapshot's events. It implements fleet.Sink.
func (j *Journal) Publish(s fleet.Snapshot) {
	if len(s.Events) == 0 {
		return
	}
	now := time.Now()

	j.mu.Lock()
	for _, e := range s.Events {
		j.buf = append(j.buf, EventRecord{
			CreatedAt: now,
			SessionID: j.session,
			Tick:      e.Tick,
			Kind:      string(e.Kind),
			Agent:     int(e.Agent),
			Vertex:    int(e.Vertex),
			Message:   e.Message,
		})
	}
	full := len(j.buf) >= j.opts.BatchSize
	j.mu.Unlock()

	if full {
		select {
		case j.kick <- struct{}{}:
		default:
		}
	}
}

// Run flushes on a timer and whenever a batch fills, until ctx is done.
func (j *Journal) Run(ctx context.Context) {
	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := j.Flush(); err != nil {
				j.log.Error("final journal flush", "error", err)
			}
			return
		case <-ticker.C:
		case <-j.kick:
		}
		if err := j.Flush(); err != nil {
			j.log.Error("journal flush", "error", err)
		}
	}
}

// Flush writes all buffered events.
func (j *Journal) Flush() error {
	j.mu.Lock()
	if len(j.buf) == 0 {
		j.mu.Unlock()
		return nil
	}
	pending := make([]EventRecord, len(j.buf))
	copy(pending, j.buf)
	j.buf = j.buf[:0]
	j.mu.Unlock()

	if err := j.db.CreateInBatches(pending, j.opts.BatchSize).Error; err != nil {
		return fmt.Errorf("save %d events: %w", len(pending), err)
	}
	j.log.Debug("journal flushed", "events", len(pending))
	return nil
}

// Pending returns the number of buffered events.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.buf)
}

// Recent returns the newest events of this session, newest first.
func (j *Journal) Recent(limit int) ([]EventRecord, error) {
	var records []EventRecord
	err := j.db.Where("session_id = ?", j.session).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// ByAgent returns this session's events for one agent in tick order.
func (j *Journal) ByAgent(agent int) ([]EventRecord, error) {
	var records []EventRecord
	err := j.db.Where("session_id = ? AND agent = ?", j.session, agent).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// CountByKind tallies this session's events per kind.
func (j *Journal) CountByKind() (map[string]int64, error) {
	var rows []struct {
		Kind string
		N    int64
	}
	err := j.db.Model(&EventRecord{}).
		Select("kind, count(*) AS n").
		Where("session_id = ?", j.session).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Kind] = r.N
	}
	return counts, nil
}

// Sessions lists every session id in the store.
func (j *Journal) Sessions() ([]string, error) {
	var ids []string
	err := j.db.Model(&EventRecord{}).Distinct().Pluck("session_id", &ids).Error
	return ids, err
}

// Close flushes and closes the database.
func (j *Journal) Close() error {
	flushErr := j.Flush()
	sqlDB, err := j.db.DB()
	if err != nil {
		return errors.Join(flushErr, err)
	}
	return errors.Join(flushErr, sqlDB.Close())
}
