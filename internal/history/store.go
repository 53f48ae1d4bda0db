package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/sbsp-go/internal/bus"
	"github.com/bbernstein/sbsp-go/internal/event"
)

// Config holds the audit database's connection settings.
type Config struct {
	Path  string
	Debug bool
}

// Connect opens (creating if necessary) the SQLite audit database and
// migrates the Record table.
func Connect(cfg Config) (*gorm.DB, error) {
	dbPath := strings.TrimPrefix(cfg.Path, "file:")

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{SlowThreshold: time.Second, LogLevel: logLevel, IgnoreRecordNotFoundError: true},
	)

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger, SkipDefaultTransaction: true})
	if err != nil {
		return nil, fmt.Errorf("connect history database: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	return db, nil
}

// Log subscribes to the bus's UiEvent stream and writes a Record for
// each one it receives, without ever blocking the bus: a slow or
// failing write only affects the audit trail, never live playback.
type Log struct {
	db  *gorm.DB
	bus *bus.Bus
	sub *bus.EventSubscriber

	stopChan chan struct{}
	done     chan struct{}
}

// NewLog wires a Log to b. Call Start to begin recording.
func NewLog(db *gorm.DB, b *bus.Bus) *Log {
	return &Log{db: db, bus: b, stopChan: make(chan struct{}), done: make(chan struct{})}
}

// Start subscribes to the bus and begins recording events in the
// background.
func (l *Log) Start() {
	l.sub = l.bus.SubscribeEvents()
	go l.run()
}

// Close unsubscribes from the bus and waits for the recorder goroutine
// to exit. Events still buffered in the subscription at that moment
// may be left unrecorded.
func (l *Log) Close() {
	l.bus.UnsubscribeEvents(l.sub)
	close(l.stopChan)
	<-l.done
}

func (l *Log) run() {
	defer close(l.done)
	for {
		select {
		case <-l.stopChan:
			return
		case e, ok := <-l.sub.Channel():
			if !ok {
				return
			}
			if err := l.write(e); err != nil {
				log.Printf("history: failed to record %s event: %v", e.Kind, err)
			}
		}
	}
}

func (l *Log) write(e event.UiEvent) error {
	params, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	rec := Record{
		ID:        cuid.New(),
		CreatedAt: time.Now(),
		Kind:      string(e.Kind),
		CueID:     cueIDString(e),
		Message:   message(e),
		Params:    string(params),
	}
	return l.db.WithContext(context.Background()).Create(&rec).Error
}

func cueIDString(e event.UiEvent) string {
	if e.Kind == event.KindOperationFailed {
		if e.OpError.CueID == uuid.Nil {
			return ""
		}
		return e.OpError.CueID.String()
	}
	if e.CueID == uuid.Nil {
		return ""
	}
	return e.CueID.String()
}

func message(e event.UiEvent) string {
	if e.Kind == event.KindOperationFailed {
		return e.OpError.Message
	}
	if e.Error != "" {
		return e.Error
	}
	return ""
}

// Recent returns up to limit Records, most recent first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	result := l.db.WithContext(ctx).Order("seq DESC").Limit(limit).Find(&records)
	return records, result.Error
}
