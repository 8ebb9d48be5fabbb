package database

import (
	"context"
	"fmt"

	"bluewar-ledger/models"

	"gorm.io/gorm"
)

// AdditiveMigration names a column that older databases may lack.
// Field is the model's struct field; gorm resolves the column and its default.
type AdditiveMigration struct {
	Name  string
	Model any
	Field string
}

// AdditiveMigrations is append-only. Entries are never removed or renamed.
var AdditiveMigrations = []AdditiveMigration{
	{Name: "member_users.is_admin", Model: &models.MemberUser{}, Field: "IsAdmin"},
	{Name: "bluewar_matches.review_log", Model: &models.Match{}, Field: "ReviewLog"},
	{Name: "users.note", Model: &models.User{}, Field: "Note"},
	{Name: "users.base_wins", Model: &models.User{}, Field: "BaseWins"},
	{Name: "users.base_losses", Model: &models.User{}, Field: "BaseLosses"},
}

// EnsureSchema adds any missing column from migrations and makes sure app_meta
// exists. It only ever adds; running it on a repaired schema is a no-op.
// Returns the number of alterations performed.
func EnsureSchema(ctx context.Context, db *gorm.DB, migrations []AdditiveMigration) (int, error) {
	m := db.WithContext(ctx).Migrator()
	altered := 0

	for _, mig := range migrations {
		if !m.HasTable(mig.Model) {
			return altered, fmt.Errorf("schema guard: table for %s does not exist", mig.Name)
		}
		if m.HasColumn(mig.Model, mig.Field) {
			continue
		}
		if err := m.AddColumn(mig.Model, mig.Field); err != nil {
			return altered, fmt.Errorf("schema guard: add column %s: %w", mig.Name, err)
		}
		altered++
	}

	if !m.HasTable(&models.AppMeta{}) {
		if err := m.CreateTable(&models.AppMeta{}); err != nil {
			return altered, fmt.Errorf("schema guard: create app_meta: %w", err)
		}
		altered++
	}

	return altered, nil
}
