// Package audit records system log entries. Emission is best-effort and
// decoupled from the caller's transaction: entries are queued and written by a
// background worker, and a failed write is logged instead of returned.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

const (
	ActionProductCreate  = "product.create"
	ActionProductUpdate  = "product.update"
	ActionProductDelete  = "product.delete"
	ActionProductBatch   = "product.batch_delete"
	ActionProductImport  = "product.import"
	ActionMovementCreate = "movement.create"
	ActionCategoryCreate = "category.create"
	ActionCategoryUpdate = "category.update"
	ActionCategoryDelete = "category.delete"
	ActionSupplierCreate = "supplier.create"
	ActionSupplierUpdate = "supplier.update"
	ActionSupplierDelete = "supplier.delete"
	ActionUserCreate     = "user.create"
	ActionUserUpdate     = "user.update"
	ActionUserDelete     = "user.delete"
	ActionUserBatch      = "user.batch_delete"
	ActionUserLogin      = "user.login"
	ActionUserLoginFail  = "user.login_failed"
	ActionUserLogout     = "user.logout"
	ActionPasswordForgot = "user.password_forgot"
	ActionPasswordReset  = "user.password_reset"
	ActionHistoryReset   = "history.reset"
	ActionProductsReset  = "products.reset"
	ActionLogsReset      = "logs.reset"
)

// Entry is one system log event before persistence.
type Entry struct {
	Action      string
	Description string
	Actor       models.Actor
	Level       string
	Metadata    map[string]any
	At          time.Time
}

// Service owns the background writer.
type Service struct {
	db    *sqlite.DB
	queue chan Entry
	done  chan struct{}

	// pending counts entries not yet written; idle is signalled when it hits zero.
	pendingMu sync.Mutex
	pending   int
	idle      *sync.Cond

	mu     sync.RWMutex
	closed bool
}

// NewService starts the writer goroutine. Call Close on shutdown.
func NewService(db *sqlite.DB) *Service {
	s := &Service{
		db:    db,
		queue: make(chan Entry, 256),
		done:  make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.pendingMu)
	go s.run()
	return s
}

// Emit queues an entry. It never blocks on the database and never fails the caller.
func (s *Service) Emit(e Entry) {
	if s == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.Level == "" {
		e.Level = models.LevelInfo
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		slog.Warn("audit entry dropped after close", slog.String("action", e.Action))
		return
	}
	s.pendingMu.Lock()
	s.pending++
	s.pendingMu.Unlock()
	select {
	case s.queue <- e:
	default:
		// Queue full: hand off to a goroutine rather than drop or block the caller.
		go s.write(e)
	}
}

// Flush waits until every queued entry has been written or has failed. It is
// safe to call while other goroutines keep emitting.
func (s *Service) Flush() {
	if s == nil {
		return
	}
	s.pendingMu.Lock()
	for s.pending > 0 {
		s.idle.Wait()
	}
	s.pendingMu.Unlock()
}

// Close drains the queue and stops the writer.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *Service) run() {
	defer close(s.done)
	for e := range s.queue {
		s.write(e)
	}
}

func (s *Service) write(e Entry) {
	defer s.settle()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Write(ctx, s.db, e); err != nil {
		slog.Error("audit write failed", slog.String("action", e.Action), slog.Any("err", err))
	}
}

func (s *Service) settle() {
	s.pendingMu.Lock()
	s.pending--
	if s.pending == 0 {
		s.idle.Broadcast()
	}
	s.pendingMu.Unlock()
}

// Write persists an entry synchronously in its own transaction.
func Write(ctx context.Context, db *sqlite.DB, e Entry) error {
	row, err := toModel(e)
	if err != nil {
		return err
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
}

func toModel(e Entry) (models.SystemLog, error) {
	metadata, err := marshal(e.Metadata)
	if err != nil {
		return models.SystemLog{}, err
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	row := models.SystemLog{
		Action:      e.Action,
		Description: e.Description,
		UserName:    e.Actor.Name,
		Level:       e.Level,
		Metadata:    metadata,
		CreatedAt:   at.UTC(),
	}
	if row.Level == "" {
		row.Level = models.LevelInfo
	}
	if e.Actor.UserID > 0 {
		id := e.Actor.UserID
		row.UserID = &id
	}
	return row, nil
}

func marshal(v map[string]any) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
