// Package progress provides database operations for per-device reading
// positions. Writes merge by timestamp: a stale update never regresses the
// stored position, regardless of arrival order.
package progress

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shelfgate/shelfgate/internal/entities"
	"github.com/shelfgate/shelfgate/internal/gateway"
)

// Repository handles all reading-progress database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored progress for a (book, device) pair, or nil when no
// record exists.
func (r *Repository) Get(bookID string, deviceID uint) (*entities.Progress, error) {
	const op = "progress.Get"

	var p entities.Progress
	err := r.db.Where("book_id = ? AND device_id = ?", bookID, deviceID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, gateway.E(gateway.KindInternal, op, err)
	}
	return &p, nil
}

// Set merges an incoming progress write against any existing record and
// returns the authoritative row. An incoming write older than the stored
// record is a silent no-op: the newer value wins and is returned. The
// read-check-write runs in one transaction so concurrent writes for the
// same (book, device) pair cannot interleave into a lost update.
func (r *Repository) Set(incoming *entities.Progress) (*entities.Progress, error) {
	const op = "progress.Set"

	var stored entities.Progress
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing entities.Progress
		err := tx.Where("book_id = ? AND device_id = ?", incoming.BookID, incoming.DeviceID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			stored = *incoming
			return tx.Create(&stored).Error
		case err != nil:
			return err
		case incoming.UpdatedAt.After(existing.UpdatedAt):
			stored = *incoming
			return tx.Model(&entities.Progress{}).
				Where("book_id = ? AND device_id = ?", incoming.BookID, incoming.DeviceID).
				Updates(map[string]any{
					"position":   incoming.Position,
					"updated_at": incoming.UpdatedAt,
				}).Error
		default:
			// Stale write: keep the newer stored value.
			stored = existing
			return nil
		}
	})
	if err != nil {
		return nil, gateway.E(gateway.KindInternal, op, err)
	}

	return &stored, nil
}
