package services_test

import (
	"context"
	"testing"

	"bluewar-ledger/models"
	"bluewar-ledger/services"
	"bluewar-ledger/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func register(t *testing.T, svc *services.MemberService, id string) *models.MemberUser {
	t.Helper()
	m, err := svc.Register(context.Background(), services.RegisterRequest{
		DiscordID: id, Nickname: "nick-" + id, Password: "password1", PasswordConfirm: "password1",
	})
	require.NoError(t, err)
	return m
}

func TestRegisterValidation(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := services.NewMemberService(db, nil, zap.NewNop())
	ctx := context.Background()

	bad := []services.RegisterRequest{
		{DiscordID: "x", Nickname: "n", Password: "password1", PasswordConfirm: "password1"},
		{DiscordID: "has space", Nickname: "n", Password: "password1", PasswordConfirm: "password1"},
		{DiscordID: "ok_id", Nickname: "", Password: "password1", PasswordConfirm: "password1"},
		{DiscordID: "ok_id", Nickname: "n", Password: "short", PasswordConfirm: "short"},
		{DiscordID: "ok_id", Nickname: "n", Password: "password1", PasswordConfirm: "password2"},
	}
	for _, req := range bad {
		_, err := svc.Register(ctx, req)
		assert.ErrorIs(t, err, services.ErrInvalidInput, "%+v", req)
	}

	m := register(t, svc, "유메_01")
	assert.True(t, m.IsActive)
	assert.False(t, m.IsAdmin)

	_, err := svc.Register(ctx, services.RegisterRequest{
		DiscordID: "유메_01", Nickname: "dup", Password: "password1", PasswordConfirm: "password1",
	})
	assert.ErrorIs(t, err, services.ErrDuplicateMember)
}

func TestAuthenticate(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := services.NewMemberService(db, []string{"boss"}, zap.NewNop())
	ctx := context.Background()

	register(t, svc, "member1")
	m, err := svc.Authenticate(ctx, " member1 ", "password1")
	require.NoError(t, err)
	assert.NotNil(t, m.LastLoginAt)

	_, err = svc.Authenticate(ctx, "member1", "wrong-password")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	require.NoError(t, db.Model(&models.MemberUser{}).Where("discord_id = ?", "member1").Update("is_active", false).Error)
	_, err = svc.Authenticate(ctx, "member1", "password1")
	assert.ErrorIs(t, err, services.ErrMemberInactive)

	// A configured admin demoted in the database is promoted again at login.
	register(t, svc, "boss")
	require.NoError(t, db.Model(&models.MemberUser{}).Where("discord_id = ?", "boss").Update("is_admin", false).Error)
	boss, err := svc.Authenticate(ctx, "boss", "password1")
	require.NoError(t, err)
	assert.True(t, boss.IsAdmin)
}

func TestPromoteAndBootstrap(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	plain := services.NewMemberService(db, nil, zap.NewNop())
	ctx := context.Background()

	register(t, plain, "alice")
	register(t, plain, "bob")

	m, err := plain.Promote(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, m.IsAdmin)
	_, err = plain.Promote(ctx, "nobody")
	assert.ErrorIs(t, err, services.ErrMemberNotFound)

	boot := services.NewMemberService(db, []string{"bob", "carol"}, zap.NewNop())
	n, err := boot.BootstrapAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var bob models.MemberUser
	require.NoError(t, db.Where("discord_id = ?", "bob").First(&bob).Error)
	assert.True(t, bob.IsAdmin)

	// The marker makes later runs leave bob's row alone.
	require.NoError(t, db.Model(&bob).Update("is_admin", false).Error)
	n, err = boot.BootstrapAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, db.First(&bob, bob.ID).Error)
	assert.False(t, bob.IsAdmin)

	// carol registers later; the next bootstrap picks her up.
	register(t, plain, "carol")
	n, err = boot.BootstrapAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
