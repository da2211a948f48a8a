package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// OperationRecord is one row of the operation audit log: a summary of a
// single retrieve, compare, or merge run.
type OperationRecord struct {
	// ID is the operation id (a UUID).
	ID string `gorm:"primaryKey;size:36" json:"id"`
	// Kind is the operation kind (retrieve, compare, merge).
	Kind string `gorm:"size:16;index" json:"kind"`
	// Resource describes what was operated on (resource name or type list).
	Resource string `gorm:"size:255" json:"resource"`
	// Sources is the number of org sources targeted.
	Sources int `json:"sources"`
	// Succeeded counts fully succeeded resources or sources.
	Succeeded int `json:"succeeded"`
	// Failed counts failures recorded in the final report.
	Failed int `json:"failed"`
	// Conflicts counts detected merge conflicts, for merge runs.
	Conflicts int `json:"conflicts"`
	// Status is the terminal status (ok, partial, failed).
	Status string `gorm:"size:16" json:"status"`
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// TableName pins the audit table name.
func (OperationRecord) TableName() string {
	return "operation_audit"
}

// AuditStore persists operation summaries. A nil store is valid and makes
// every method a no-op, so the engine never depends on the database being
// reachable.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore creates the store and migrates its table.
func NewAuditStore(db *gorm.DB) (*AuditStore, error) {
	if err := db.AutoMigrate(&OperationRecord{}); err != nil {
		return nil, err
	}
	return &AuditStore{db: db}, nil
}

// Record writes one operation summary.
func (s *AuditStore) Record(ctx context.Context, rec *OperationRecord) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// Recent returns the latest operation summaries, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]OperationRecord, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var recs []OperationRecord
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
