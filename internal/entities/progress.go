package entities

import "time"

// Progress is the stored reading position of one device in one book.
// Position is a completion fraction in [0, 1]. UpdatedAt is monotonically
// non-decreasing per (book, device) pair; stale writes are discarded.
type Progress struct {
	BookID    string    `gorm:"primaryKey;size:64" json:"book_id"`
	DeviceID  uint      `gorm:"primaryKey" json:"device_id"`
	Position  float64   `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Progress) TableName() string {
	return "reading_progress"
}
