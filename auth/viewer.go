package auth

// Viewer is who is looking at the site: Admin, Member or Anonymous.
type Viewer interface {
	isViewer()
}

// Admin signed in with a configured username/password pair.
type Admin struct {
	Username string
}

// Member is a registered site account.
type Member struct {
	MemberID  uint
	DiscordID string
	Nickname  string
	IsAdmin   bool
}

type Anonymous struct{}

func (Admin) isViewer()     {}
func (Member) isViewer()    {}
func (Anonymous) isViewer() {}

const (
	RoleAdmin     = "admin"
	RoleMember    = "member"
	RoleAnonymous = "anonymous"
)

// View is the JSON shape handed to templates and API clients.
type View struct {
	Role      string `json:"role"`
	DiscordID string `json:"discord_id"`
	Nickname  string `json:"nickname"`
	MemberID  uint   `json:"member_id,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

// RoleView flattens a Viewer. Config admins report their username as both id and nickname.
func RoleView(v Viewer) View {
	switch v := v.(type) {
	case Admin:
		return View{Role: RoleAdmin, DiscordID: v.Username, Nickname: v.Username, IsAdmin: true}
	case Member:
		return View{Role: RoleMember, DiscordID: v.DiscordID, Nickname: v.Nickname, MemberID: v.MemberID, IsAdmin: v.IsAdmin}
	default:
		return View{Role: RoleAnonymous}
	}
}

// HasAccess reports whether the viewer may see ranking and match data.
func HasAccess(v Viewer) bool {
	switch v.(type) {
	case Admin, Member:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the viewer may use admin pages.
func IsAdmin(v Viewer) bool {
	switch v := v.(type) {
	case Admin:
		return true
	case Member:
		return v.IsAdmin
	default:
		return false
	}
}
