package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sentinel_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal persists fired triggers and their downstream outcomes to SQLite.
// Records are insert-only; the journal is an audit trail, not working state.
type Journal struct {
	db *gorm.DB
}

// NewJournal opens or creates the journal database at path.
func NewJournal(path string) (*Journal, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Pure Go SQLite, no cgo.
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := db.AutoMigrate(&domain.TriggerRecord{}, &domain.OrderRecord{}, &domain.VerdictRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// SaveTrigger journals a fired trigger.
func (j *Journal) SaveTrigger(rec *domain.TriggerRecord) error {
	return j.db.Create(rec).Error
}

// SaveOrder journals the outcome of one protective-order dispatch.
func (j *Journal) SaveOrder(rec *domain.OrderRecord) error {
	return j.db.Create(rec).Error
}

// SaveVerdict journals the analysis outcome for a trigger.
func (j *Journal) SaveVerdict(rec *domain.VerdictRecord) error {
	return j.db.Create(rec).Error
}

// GetTrigger retrieves a journaled trigger by ID.
func (j *Journal) GetTrigger(id string) (*domain.TriggerRecord, error) {
	var rec domain.TriggerRecord
	err := j.db.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &rec, err
}

// GetRecentTriggers lists the latest fires, newest first.
func (j *Journal) GetRecentTriggers(limit int) ([]domain.TriggerRecord, error) {
	var recs []domain.TriggerRecord
	err := j.db.Order("fired_at desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// GetOrdersForTrigger lists the order outcomes journaled for one trigger.
func (j *Journal) GetOrdersForTrigger(triggerID string) ([]domain.OrderRecord, error) {
	var recs []domain.OrderRecord
	err := j.db.Where("trigger_id = ?", triggerID).Find(&recs).Error
	return recs, err
}

// GetVerdictsForTrigger lists the analysis outcomes journaled for one trigger.
func (j *Journal) GetVerdictsForTrigger(triggerID string) ([]domain.VerdictRecord, error) {
	var recs []domain.VerdictRecord
	err := j.db.Where("trigger_id = ?", triggerID).Find(&recs).Error
	return recs, err
}
