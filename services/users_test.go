package services_test

import (
	"context"
	"testing"

	"bluewar-ledger/services"
	"bluewar-ledger/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCRUD(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := services.NewUserService(db)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, services.CreateUserRequest{DiscordID: " 42 ", Nickname: strPtr("Answer")})
	require.NoError(t, err)
	assert.Equal(t, "42", u.DiscordID)

	_, err = svc.CreateUser(ctx, services.CreateUserRequest{DiscordID: "42"})
	assert.ErrorIs(t, err, services.ErrDuplicateUser)

	_, err = svc.CreateUser(ctx, services.CreateUserRequest{DiscordID: ""})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	other, err := svc.CreateUser(ctx, services.CreateUserRequest{DiscordID: "43"})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, other.ID, services.UpdateUserRequest{DiscordID: strPtr("42")})
	assert.ErrorIs(t, err, services.ErrDuplicateUser)

	updated, err := svc.UpdateUser(ctx, u.ID, services.UpdateUserRequest{Nickname: strPtr(""), Note: strPtr("vip")})
	require.NoError(t, err)
	assert.Nil(t, updated.Nickname)
	assert.Equal(t, "vip", *updated.Note)

	stats, err := svc.UpdateStats(ctx, u.ID, services.UpdateStatsRequest{BaseWins: intPtr(-3), BaseLosses: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.BaseWins)
	assert.Equal(t, 4, stats.BaseLosses)

	_, err = svc.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, services.ErrUserNotFound)

	list, err := svc.SearchUsers(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "42", list[0].DiscordID)

	found, err := svc.SearchUsers(ctx, "43")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestDashboard(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	record(t, db, duel("pvp", "1", "2", 1), duel("pvp", "2", "3", 1))

	d, err := services.NewUserService(db).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.TotalUsers)
	assert.Equal(t, int64(2), d.TotalMatches)
	assert.Len(t, d.RecentMatches, 2)
}

func TestSearchUsersTreatsWildcardsLiterally(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := services.NewUserService(db)
	ctx := context.Background()

	for _, id := range []string{"snake_case", "snakeXcase"} {
		_, err := svc.CreateUser(ctx, services.CreateUserRequest{DiscordID: id})
		require.NoError(t, err)
	}

	found, err := svc.SearchUsers(ctx, "e_c")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "snake_case", found[0].DiscordID)

	found, err = svc.SearchUsers(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, found)
}
