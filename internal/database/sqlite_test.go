package database

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sshcollectorpro/consolepilot/internal/config"
	"github.com/sshcollectorpro/consolepilot/internal/model"
)

func TestInitSQLiteMigratesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "test.db")
	require.NoError(t, InitSQLite(config.SQLiteConfig{Path: path}))
	t.Cleanup(func() { _ = Close() })

	require.NoError(t, Health())
	assert.True(t, GetDB().Migrator().HasTable(&model.Task{}))
	assert.True(t, GetDB().Migrator().HasTable(&model.ConfigSnapshot{}))

	task := model.Task{ID: "t1", Type: model.TaskTypeBackup, Platform: "vyos", DeviceIP: "192.0.2.1", Username: "vyos", Status: model.TaskStatusSuccess}
	require.NoError(t, WithRetry(func(tx *gorm.DB) error { return tx.Create(&task).Error }, 3, 0))

	var got model.Task
	require.NoError(t, GetDB().First(&got, "id = ?", "t1").Error)
	assert.Equal(t, "vyos", got.Platform)
	assert.Equal(t, "telnet", got.Protocol)
}

func TestIsBusyError(t *testing.T) {
	assert.True(t, IsBusyError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, IsBusyError(errors.New("no such table")))
	assert.False(t, IsBusyError(nil))
}

func TestWithRetryStopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := WithRetry(func(*gorm.DB) error {
		calls++
		return errors.New("constraint failed")
	}, 5, 0)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDSNCarriesPragmas(t *testing.T) {
	got := dsn("/tmp/x.db")
	assert.True(t, strings.HasPrefix(got, "/tmp/x.db?_pragma=busy_timeout(15000)"))
	assert.Contains(t, got, "&_pragma=journal_mode(WAL)")
}

func TestTransactionWithRetryRollsBack(t *testing.T) {
	require.NoError(t, InitSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "tx.db")}))
	t.Cleanup(func() { _ = Close() })

	err := TransactionWithRetry(func(tx *gorm.DB) error {
		if err := tx.Create(&model.TaskLog{ID: "l1", TaskID: "t1", Level: "info", Message: "x"}).Error; err != nil {
			return err
		}
		return errors.New("abort")
	}, 3, 0)
	assert.EqualError(t, err, "abort")

	var n int64
	require.NoError(t, GetDB().Model(&model.TaskLog{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.NotNil(t, GetStats())
}
