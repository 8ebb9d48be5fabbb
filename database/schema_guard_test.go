package database_test

import (
	"context"
	"sort"
	"testing"

	"bluewar-ledger/database"
	"bluewar-ledger/models"
	"bluewar-ledger/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func columnNames(t *testing.T, db *gorm.DB, model any) []string {
	t.Helper()
	cols, err := db.Migrator().ColumnTypes(model)
	require.NoError(t, err)
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

func TestPrepareFreshDatabase(t *testing.T) {
	db := testhelpers.OpenEmptyDB(t)

	altered, err := database.Prepare(context.Background(), db, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, altered)

	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestSchemaGuardRepairsLegacyMemberTable(t *testing.T) {
	db := testhelpers.OpenEmptyDB(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(`CREATE TABLE member_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		discord_id VARCHAR(32) NOT NULL UNIQUE,
		nickname VARCHAR(100) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_active NUMERIC NOT NULL DEFAULT 1,
		created_at DATETIME,
		last_login_at DATETIME
	)`).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO member_users (discord_id, nickname, password_hash) VALUES ('1001', 'old', 'x')`,
	).Error)

	altered, err := database.Prepare(ctx, db, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, altered)
	assert.True(t, db.Migrator().HasColumn(&models.MemberUser{}, "is_admin"))

	var member models.MemberUser
	require.NoError(t, db.Where("discord_id = ?", "1001").First(&member).Error)
	assert.False(t, member.IsAdmin)
	assert.Equal(t, "old", member.Nickname)

	before := columnNames(t, db, &models.MemberUser{})

	again, err := database.Prepare(ctx, db, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, again)
	assert.Equal(t, before, columnNames(t, db, &models.MemberUser{}))
}

func TestSchemaGuardCreatesAppMeta(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.AppMeta{}))

	altered, err := database.EnsureSchema(context.Background(), db, database.AdditiveMigrations)
	require.NoError(t, err)
	assert.Equal(t, 1, altered)
	assert.True(t, db.Migrator().HasTable(&models.AppMeta{}))
}

func TestSchemaGuardFailsWithoutTable(t *testing.T) {
	db := testhelpers.OpenEmptyDB(t)

	_, err := database.EnsureSchema(context.Background(), db, database.AdditiveMigrations)
	assert.Error(t, err)
}

func TestMatchStatusColumnDefaultsToUnknown(t *testing.T) {
	db := testhelpers.SetupTestDB(t)

	require.NoError(t, db.Exec(
		"INSERT INTO bluewar_matches (mode, starter_discord_id, started_at, finished_at) VALUES (?, ?, ?, ?)",
		"pvp", "1", "2025-01-10 12:00:00", "2025-01-10 12:05:00",
	).Error)

	var status string
	require.NoError(t, db.Raw("SELECT status FROM bluewar_matches").Scan(&status).Error)
	assert.Equal(t, models.StatusUnknown, status)
}
