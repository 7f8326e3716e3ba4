// Package audit records which profile keys were written, when, and by which
// request. Values are never recorded.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Action constants
const (
	ActionProfileSet = "profile.set"
)

// Entry represents an audit log entry
type Entry struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	ProfileID string         `json:"profile_id" db:"profile_id"`
	Action    string         `json:"action" db:"action"`
	Keys      pq.StringArray `json:"keys" db:"keys"`
	RequestID *string        `json:"request_id,omitempty" db:"request_id"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// LoggerConfig holds configuration for the audit logger
type LoggerConfig struct {
	BufferSize    int           // Max entries to buffer before flush
	FlushInterval time.Duration // Time interval for flushing buffer
	RetentionDays int           // Days to retain audit logs (0 = forever)
}

// DefaultLoggerConfig returns the defaults applied to zero fields
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		BufferSize:    100,
		FlushInterval: time.Second,
		RetentionDays: 90,
	}
}

// Logger provides async buffered audit logging
type Logger struct {
	db     *sqlx.DB
	config LoggerConfig
	logger *zap.Logger

	buffer chan *Entry
	wg     sync.WaitGroup
	done   chan struct{}
	once   sync.Once
}

// NewLogger creates a new audit logger and starts its background writer
func NewLogger(db *sqlx.DB, config LoggerConfig, logger *zap.Logger) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultLoggerConfig().BufferSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultLoggerConfig().FlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Logger{
		db:     db,
		config: config,
		logger: logger,
		buffer: make(chan *Entry, config.BufferSize*2),
		done:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.backgroundWriter()

	return l
}

// Log queues an audit entry
func (l *Logger) Log(ctx context.Context, entry *Entry) {
	stamp(entry)

	select {
	case l.buffer <- entry:
	default:
		l.logger.Warn("audit buffer full, writing directly",
			zap.String("action", entry.Action),
			zap.String("profile_id", entry.ProfileID),
		)
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := l.writeEntry(ctx, entry); err != nil {
				l.logger.Error("failed to write audit entry", zap.Error(err))
			}
		}()
	}
}

// LogSync writes an audit entry synchronously
func (l *Logger) LogSync(ctx context.Context, entry *Entry) error {
	stamp(entry)
	return l.writeEntry(ctx, entry)
}

func stamp(entry *Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}

func (l *Logger) backgroundWriter() {
	defer l.wg.Done()

	batch := make([]*Entry, 0, l.config.BufferSize)
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= l.config.BufferSize {
				l.flushBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flushBatch(batch)
				batch = batch[:0]
			}

		case <-l.done:
			for {
				select {
				case entry := <-l.buffer:
					batch = append(batch, entry)
				default:
					l.flushBatch(batch)
					return
				}
			}
		}
	}
}

const insertEntry = `INSERT INTO profile_audit (id, profile_id, action, keys, request_id, created_at)
	VALUES (:id, :profile_id, :action, :keys, :request_id, :created_at)
	ON CONFLICT DO NOTHING`

func (l *Logger) flushBatch(batch []*Entry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows := make([]Entry, len(batch))
	for i, e := range batch {
		rows[i] = *e
	}

	if _, err := l.db.NamedExecContext(ctx, insertEntry, rows); err != nil {
		l.logger.Error("failed to flush audit batch",
			zap.Error(err),
			zap.Int("batch_size", len(batch)),
		)
		return
	}

	l.logger.Debug("flushed audit batch", zap.Int("count", len(batch)))
}

func (l *Logger) writeEntry(ctx context.Context, entry *Entry) error {
	_, err := l.db.NamedExecContext(ctx, insertEntry, *entry)
	return err
}

// Close flushes queued entries and stops the background writer
func (l *Logger) Close() error {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}

// Prune deletes entries older than the retention window
func (l *Logger) Prune(ctx context.Context) (int64, error) {
	if l.config.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -l.config.RetentionDays)
	res, err := l.db.ExecContext(ctx, `DELETE FROM profile_audit WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning audit log: %w", err)
	}
	return res.RowsAffected()
}

// QueryOptions holds options for querying audit logs
type QueryOptions struct {
	ProfileID string
	Action    string
	Key       string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Query returns audit entries matching the criteria, newest first
func (l *Logger) Query(ctx context.Context, opts QueryOptions) ([]*Entry, error) {
	query := `SELECT id, profile_id, action, keys, request_id, created_at
		FROM profile_audit WHERE profile_id = $1`

	args := []any{opts.ProfileID}
	argNum := 2

	if opts.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argNum)
		args = append(args, opts.Action)
		argNum++
	}

	if opts.Key != "" {
		query += fmt.Sprintf(" AND $%d = ANY(keys)", argNum)
		args = append(args, opts.Key)
		argNum++
	}

	if !opts.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, opts.StartTime)
		argNum++
	}

	if !opts.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argNum)
		args = append(args, opts.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else {
		query += " LIMIT 100"
	}

	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	var entries []*Entry
	if err := l.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	return entries, nil
}
