// Package devices provides database operations for device registration.
package devices

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/shelfgate/shelfgate/internal/entities"
	"github.com/shelfgate/shelfgate/internal/gateway"
)

// Repository handles all device database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new devices repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrRegister returns the device for a fingerprint, creating it on first
// contact. Repeated calls with the same fingerprint return the same device.
func (r *Repository) GetOrRegister(fingerprint string) (*entities.Device, error) {
	const op = "devices.GetOrRegister"

	var device entities.Device
	err := r.db.Where("fingerprint = ?", fingerprint).First(&device).Error
	if err == nil {
		return &device, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gateway.E(gateway.KindInternal, op, err)
	}

	device = entities.Device{
		Fingerprint:  fingerprint,
		RegisteredAt: time.Now(),
	}
	if err := r.db.Create(&device).Error; err != nil {
		// A concurrent registration may have won the unique-index race.
		var existing entities.Device
		if lookupErr := r.db.Where("fingerprint = ?", fingerprint).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, gateway.E(gateway.KindInternal, op, err)
	}

	return &device, nil
}
