package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const SessionCookieName = "yume_session"

var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	Kind     string `json:"kind"`
	Nickname string `json:"nickname,omitempty"`
	MemberID uint   `json:"member_id,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager signs and parses HS256 session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Issue returns a signed token for an Admin or Member viewer.
func (m *SessionManager) Issue(v Viewer) (string, error) {
	now := m.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	switch v := v.(type) {
	case Admin:
		claims.Kind = RoleAdmin
		claims.Subject = v.Username
		claims.Nickname = v.Username
		claims.IsAdmin = true
	case Member:
		claims.Kind = RoleMember
		claims.Subject = v.DiscordID
		claims.Nickname = v.Nickname
		claims.MemberID = v.MemberID
		claims.IsAdmin = v.IsAdmin
	default:
		return "", fmt.Errorf("cannot issue session for %T", v)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse validates a token and rebuilds the viewer it was issued for.
func (m *SessionManager) Parse(raw string) (Viewer, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}

	switch claims.Kind {
	case RoleAdmin:
		return Admin{Username: claims.Subject}, nil
	case RoleMember:
		if claims.MemberID == 0 {
			return nil, fmt.Errorf("%w: missing member id", ErrInvalidSession)
		}
		return Member{
			MemberID:  claims.MemberID,
			DiscordID: claims.Subject,
			Nickname:  claims.Nickname,
			IsAdmin:   claims.IsAdmin,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidSession, strconv.Quote(claims.Kind))
	}
}
