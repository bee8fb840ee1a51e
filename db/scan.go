package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ScanStatus is the lifecycle state of a Scan. Transitions are monotonic:
// pending -> running -> {completed, failed, stopped}.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
	ScanStatusStopped   ScanStatus = "stopped"
)

// IsTerminal reports whether status ends the scan's lifecycle.
func (s ScanStatus) IsTerminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed || s == ScanStatusStopped
}

// Scan is one end-to-end reconnaissance run against a target domain.
type Scan struct {
	ID        string     `gorm:"primaryKey;size:64"`
	Target    string     `gorm:"not null"`
	Status    ScanStatus `gorm:"index;size:20;not null"`
	StartTime time.Time  `gorm:"not null"`
	EndTime   *time.Time
}

// ErrScanAlreadyExists is returned by CreateScan when the id is already in use.
var ErrScanAlreadyExists = errors.New("scan already exists")

// ErrScanNotFound is returned when a scan id has no matching row.
var ErrScanNotFound = errors.New("scan not found")

// CreateScan inserts a new scan row. It fails with ErrScanAlreadyExists if
// the identifier is already in use.
func (d *DatabaseConnection) CreateScan(id, target string, status ScanStatus) error {
	scan := Scan{
		ID:        id,
		Target:    target,
		Status:    status,
		StartTime: time.Now(),
	}
	err := d.db.Create(&scan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrScanAlreadyExists
		}
		// sqlite surfaces a duplicate primary key as a generic error, not
		// gorm.ErrDuplicatedKey; fall back to an existence check.
		var existing Scan
		if lookupErr := d.db.First(&existing, "id = ?", id).Error; lookupErr == nil {
			return ErrScanAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateScanStatus updates a scan's status. If status is terminal, end_time
// is set to now in the same write.
func (d *DatabaseConnection) UpdateScanStatus(id string, status ScanStatus) error {
	updates := map[string]any{"status": status}
	if status.IsTerminal() {
		updates["end_time"] = time.Now()
	}
	res := d.db.Model(&Scan{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrScanNotFound
	}
	return nil
}

// GetScan retrieves a single scan by id.
func (d *DatabaseConnection) GetScan(id string) (*Scan, error) {
	var scan Scan
	if err := d.db.First(&scan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	return &scan, nil
}

// ListScans returns up to limit scans ordered by start_time descending.
func (d *DatabaseConnection) ListScans(limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 50
	}
	var scans []Scan
	err := d.db.Order("start_time DESC").Limit(limit).Find(&scans).Error
	return scans, err
}
