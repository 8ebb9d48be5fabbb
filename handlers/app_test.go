package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"bluewar-ledger/auth"
	"bluewar-ledger/config"
	"bluewar-ledger/handlers"
	"bluewar-ledger/models"
	"bluewar-ledger/services"
	"bluewar-ledger/testhelpers"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	sessions *auth.SessionManager
}

func newTestEnv(t *testing.T, apiToken string) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	log := zap.NewNop()
	cfg := config.Config{
		APIToken:       apiToken,
		SessionSecret:  "test-secret",
		SessionTTL:     time.Hour,
		AdminUsers:     map[string]string{"siho": "admin-pw"},
		AllowedOrigins: []string{"http://localhost:3000"},
		InviteURL:      "https://discord.gg/example",
	}
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	app := handlers.NewApp(handlers.Deps{
		Config:    cfg,
		DB:        db,
		Log:       log,
		Sessions:  sessions,
		Ingestion: services.NewIngestionService(db, log),
		Ranking:   services.NewRankingService(db, log),
		Matches:   services.NewMatchService(db),
		Users:     services.NewUserService(db),
		Members:   services.NewMemberService(db, cfg.ConfiguredAdminDiscordIDs(), log),
		Seed:      services.NewSeedService(db, services.FileSeedSource{Path: t.TempDir() + "/none.json"}, log),
	})
	return &testEnv{app: app, db: db, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (e *testEnv) cookieFor(t *testing.T, v auth.Viewer) map[string]string {
	t.Helper()
	token, err := e.sessions.Issue(v)
	require.NoError(t, err)
	return map[string]string{"Cookie": auth.SessionCookieName + "=" + token}
}

func matchBody() map[string]any {
	return map[string]any{
		"mode":               "versus",
		"status":             "Finished",
		"starter_discord_id": "1",
		"winner_discord_id":  "1",
		"loser_discord_id":   "2",
		"win_gap":            3,
		"started_at":         "2025-01-10T12:00:00Z",
		"finished_at":        "2025-01-10T12:04:00Z",
		"participants": []map[string]any{
			{"discord_id": "1", "name": "One", "side": 1, "is_winner": true},
			{"discord_id": "2", "name": "Two", "side": 2, "is_winner": false},
		},
	}
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestIngestionRequiresToken(t *testing.T) {
	env := newTestEnv(t, "bot-secret")

	resp, _ := env.do(t, http.MethodPost, "/bluewar/matches", matchBody(), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/bluewar/matches", matchBody(), map[string]string{"X-API-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, count(t, env.db, &models.Match{}))

	resp, out := env.do(t, http.MethodPost, "/bluewar/matches", matchBody(), map[string]string{"X-API-Token": "bot-secret"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, out["ok"])
	assert.EqualValues(t, 1, out["match_id"])

	var m models.Match
	require.NoError(t, env.db.First(&m).Error)
	assert.Equal(t, "pvp", m.Mode)
	assert.Equal(t, "finished", m.Status)
}

func TestIngestionWhitespaceTokenIsEnforced(t *testing.T) {
	env := newTestEnv(t, "   ")

	resp, _ := env.do(t, http.MethodPost, "/bluewar/matches", matchBody(), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, count(t, env.db, &models.Match{}))
}

func TestIngestionOpenModeAndValidation(t *testing.T) {
	env := newTestEnv(t, "")

	bad := matchBody()
	delete(bad, "participants")
	resp, out := env.do(t, http.MethodPost, "/bluewar/matches", bad, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["cause"])
	assert.Zero(t, count(t, env.db, &models.Match{}))

	resp, _ = env.do(t, http.MethodPost, "/bluewar/matches", matchBody(), nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRankingRequiresViewer(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodPost, "/bluewar/matches", matchBody(), nil)

	resp, _ := env.do(t, http.MethodGet, "/ranking", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	member := env.cookieFor(t, auth.Member{MemberID: 1, DiscordID: "m1", Nickname: "Member"})
	resp, out := env.do(t, http.MethodGet, "/ranking?mode=bogus&limit=abc", nil, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pvp", out["mode"])
	assert.EqualValues(t, 50, out["limit"])

	viewer := out["viewer"].(map[string]any)
	assert.Equal(t, "member", viewer["role"])
	assert.Equal(t, "m1", viewer["discord_id"])

	rows := out["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "1", first["discord_id"])
	assert.Equal(t, "One", first["name"])
	assert.EqualValues(t, 1, first["rank"])
}

func TestMatchBrowserRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	_, created := env.do(t, http.MethodPost, "/bluewar/matches", matchBody(), nil)

	admin := env.cookieFor(t, auth.Admin{Username: "siho"})
	resp, out := env.do(t, http.MethodGet, "/bluewar/matches?status=finished", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, out["total"])

	resp, out = env.do(t, http.MethodGet, "/bluewar/matches/1", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["is_admin"])
	assert.Equal(t, "One", out["winner"])
	assert.EqualValues(t, created["match_id"], out["match"].(map[string]any)["id"])

	resp, _ = env.do(t, http.MethodGet, "/bluewar/matches/999", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/bluewar/matches/abc", nil, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminGate(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.do(t, http.MethodGet, "/admin/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	member := env.cookieFor(t, auth.Member{MemberID: 1, DiscordID: "m1"})
	resp, _ = env.do(t, http.MethodGet, "/admin/users", nil, member)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	memberAdmin := env.cookieFor(t, auth.Member{MemberID: 2, DiscordID: "m2", IsAdmin: true})
	resp, _ = env.do(t, http.MethodGet, "/admin/dashboard", nil, memberAdmin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminLoginAndUserCRUD(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "siho", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "siho", "password": "admin-pw"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session string
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			session = c.Value
		}
	}
	require.NotEmpty(t, session)
	admin := map[string]string{"Cookie": auth.SessionCookieName + "=" + session}

	resp, out := env.do(t, http.MethodPost, "/admin/users", map[string]any{"discord_id": "555", "nickname": "Five"}, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := int(out["id"].(float64))

	resp, _ = env.do(t, http.MethodPost, "/admin/users", map[string]any{"discord_id": "555"}, admin)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, out = env.do(t, http.MethodPut, "/admin/users/"+itoa(id)+"/stats", map[string]any{"base_wins": 4, "base_losses": -2}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 4, out["base_wins"])
	assert.EqualValues(t, 0, out["base_losses"])

	resp, out = env.do(t, http.MethodPatch, "/admin/users/"+itoa(id), map[string]any{"note": "seeded by hand"}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "seeded by hand", out["note"])

	resp, _ = env.do(t, http.MethodGet, "/admin/users/9999", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMemberRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t, "")

	body := map[string]string{"discord_id": "member_1", "nickname": "Mem", "password": "password1", "password_confirm": "password1"}
	resp, out := env.do(t, http.MethodPost, "/member/register", body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "member", out["viewer"].(map[string]any)["role"])

	resp, _ = env.do(t, http.MethodPost, "/member/register", body, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/member/login", map[string]string{"discord_id": "member_1", "password": "bad-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/member/login", map[string]string{"discord_id": "member_1", "password": "password1"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token string
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	resp, out = env.do(t, http.MethodGet, "/member/me", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "member_1", out["viewer"].(map[string]any)["discord_id"])
	assert.Equal(t, "https://discord.gg/example", out["invite_url"])
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, "")
	resp, out := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
