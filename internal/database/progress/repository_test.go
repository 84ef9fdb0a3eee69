package progress

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shelfgate/shelfgate/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_progress_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Progress{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func TestRepository_Get_Empty(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p, err := repo.Get("book-1", 1)

	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRepository_Set_CreatesRecord(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	stored, err := repo.Set(&entities.Progress{
		BookID: "book-1", DeviceID: 1, Position: 0.25, UpdatedAt: at(100),
	})

	require.NoError(t, err)
	assert.Equal(t, 0.25, stored.Position)

	p, err := repo.Get("book-1", 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0.25, p.Position)
}

func TestRepository_Set_NewerWriteWins(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 1, Position: 0.25, UpdatedAt: at(100)})
	require.NoError(t, err)

	stored, err := repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 1, Position: 0.5, UpdatedAt: at(200)})

	require.NoError(t, err)
	assert.Equal(t, 0.5, stored.Position)
	assert.Equal(t, at(200), stored.UpdatedAt.UTC())
}

func TestRepository_Set_StaleWriteIsSilentNoOp(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	// Writes arrive with timestamps 10, 5, 20: the final state must be
	// the write stamped 20 and the stale write must leave no trace.
	_, err := repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 1, Position: 0.10, UpdatedAt: at(10)})
	require.NoError(t, err)

	stored, err := repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 1, Position: 0.05, UpdatedAt: at(5)})
	require.NoError(t, err, "stale write is not an error")
	assert.Equal(t, 0.10, stored.Position, "stale write returns the authoritative newer value")
	assert.Equal(t, at(10), stored.UpdatedAt.UTC())

	stored, err = repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 1, Position: 0.20, UpdatedAt: at(20)})
	require.NoError(t, err)
	assert.Equal(t, 0.20, stored.Position)

	p, err := repo.Get("book-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.20, p.Position)
	assert.Equal(t, at(20), p.UpdatedAt.UTC())
}

func TestRepository_Set_EqualTimestampDoesNotOverwrite(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 1, Position: 0.3, UpdatedAt: at(100)})
	require.NoError(t, err)

	stored, err := repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 1, Position: 0.9, UpdatedAt: at(100)})

	require.NoError(t, err)
	assert.Equal(t, 0.3, stored.Position)
}

func TestRepository_Set_KeysAreIndependentPerDevice(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 1, Position: 0.4, UpdatedAt: at(100)})
	require.NoError(t, err)
	_, err = repo.Set(&entities.Progress{BookID: "book-1", DeviceID: 2, Position: 0.8, UpdatedAt: at(50)})
	require.NoError(t, err)

	p1, err := repo.Get("book-1", 1)
	require.NoError(t, err)
	p2, err := repo.Get("book-1", 2)
	require.NoError(t, err)

	assert.Equal(t, 0.4, p1.Position)
	assert.Equal(t, 0.8, p2.Position)
}
