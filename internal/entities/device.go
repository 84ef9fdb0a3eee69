package entities

import "time"

// Device is a reader device known to the gateway. It is created lazily on
// first contact and never deleted automatically.
type Device struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Fingerprint  string    `gorm:"size:128;uniqueIndex" json:"fingerprint"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (Device) TableName() string {
	return "devices"
}
