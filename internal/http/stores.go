package http

import "github.com/shelfgate/shelfgate/internal/entities"

// Store interfaces consumed by HTTP controllers. Each controller depends
// only on the operations it actually uses; the gorm repositories satisfy
// them, tests may substitute fakes.

// ProgressStore provides merge-on-write access to per-device reading
// positions.
type ProgressStore interface {
	Get(bookID string, deviceID uint) (*entities.Progress, error)
	Set(incoming *entities.Progress) (*entities.Progress, error)
}
