package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bluewar-ledger/models"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MinPageSize     = 10
	MaxPageSize     = 200
)

// MatchFilter drives the match browser. Unrecognized mode/status values mean "no filter".
type MatchFilter struct {
	Mode     string
	Status   string
	Query    string
	Page     int
	PageSize int
}

type MatchSummary struct {
	ID               uint      `json:"id"`
	Mode             string    `json:"mode"`
	Status           string    `json:"status"`
	Starter          string    `json:"starter"`
	Winner           string    `json:"winner"`
	Loser            string    `json:"loser"`
	WinGap           *int      `json:"win_gap"`
	TotalRounds      *int      `json:"total_rounds"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	CreatedAt        time.Time `json:"created_at"`
	ParticipantCount int       `json:"pcount"`
	Note             *string   `json:"note"`
}

type MatchPage struct {
	Matches    []MatchSummary `json:"matches"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Mode       string         `json:"mode"`
	Status     string         `json:"status"`
	Query      string         `json:"q"`
}

type ParticipantView struct {
	Side     int    `json:"side"`
	Name     string `json:"name"`
	IsWinner bool   `json:"is_winner"`
	Score    *int   `json:"score"`
	Turns    *int   `json:"turns"`
}

type MatchDetail struct {
	Match        models.Match      `json:"match"`
	Winner       string            `json:"winner"`
	Loser        string            `json:"loser"`
	Participants []ParticipantView `json:"participants"`
}

type MatchService struct {
	DB *gorm.DB
}

func NewMatchService(db *gorm.DB) *MatchService {
	return &MatchService{DB: db}
}

func (f MatchFilter) normalized() MatchFilter {
	f.Mode = strings.ToLower(strings.TrimSpace(f.Mode))
	if f.Mode != models.ModePvP && f.Mode != models.ModePractice {
		f.Mode = RankingModeAll
	}
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	switch f.Status {
	case "finished", "aborted", "running":
	default:
		f.Status = "all"
	}
	f.Query = strings.TrimSpace(f.Query)
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	f.PageSize = max(MinPageSize, min(f.PageSize, MaxPageSize))
	f.Page = max(1, f.Page)
	return f
}

// ListMatches returns one page of matches, newest first.
func (s *MatchService) ListMatches(ctx context.Context, filter MatchFilter) (*MatchPage, error) {
	f := filter.normalized()
	page := &MatchPage{Mode: f.Mode, Status: f.Status, Query: f.Query, PageSize: f.PageSize, Matches: []MatchSummary{}}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Match{})
		if f.Mode != RankingModeAll {
			q = q.Where("mode = ?", f.Mode)
		}
		if f.Status != "all" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Query != "" {
			like := containsPattern(f.Query)
			q = q.Where(
				`LOWER(starter_discord_id) LIKE ? ESCAPE '\' OR LOWER(winner_discord_id) LIKE ? ESCAPE '\' OR `+
					`LOWER(loser_discord_id) LIKE ? ESCAPE '\' OR LOWER(note) LIKE ? ESCAPE '\' OR LOWER(review_log) LIKE ? ESCAPE '\'`,
				like, like, like, like, like,
			)
		}

		if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
			return fmt.Errorf("count matches: %w", err)
		}
		page.TotalPages = max(1, int((page.Total+int64(f.PageSize)-1)/int64(f.PageSize)))
		page.Page = min(f.Page, page.TotalPages)

		var matches []models.Match
		if err := q.Order("created_at DESC").Order("id DESC").
			Offset((page.Page - 1) * f.PageSize).
			Limit(f.PageSize).
			Find(&matches).Error; err != nil {
			return fmt.Errorf("list matches: %w", err)
		}
		if len(matches) == 0 {
			return nil
		}

		counts, err := participantCounts(tx, matches)
		if err != nil {
			return err
		}
		names, err := loadNameBook(tx, matchDiscordIDs(matches))
		if err != nil {
			return err
		}

		for _, m := range matches {
			page.Matches = append(page.Matches, MatchSummary{
				ID:               m.ID,
				Mode:             m.Mode,
				Status:           m.Status,
				Starter:          names.displayOrDash(&m.StarterDiscordID),
				Winner:           names.displayOrDash(m.WinnerDiscordID),
				Loser:            names.displayOrDash(m.LoserDiscordID),
				WinGap:           m.WinGap,
				TotalRounds:      m.TotalRounds,
				StartedAt:        m.StartedAt,
				FinishedAt:       m.FinishedAt,
				CreatedAt:        m.CreatedAt,
				ParticipantCount: counts[m.ID],
				Note:             m.Note,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// GetMatch loads one match with its participants ordered by side.
func (s *MatchService) GetMatch(ctx context.Context, id uint) (*MatchDetail, error) {
	var detail *MatchDetail
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := tx.Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("side ASC").Order("id ASC")
		}).First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("load match %d: %w", id, err)
		}

		ids := matchDiscordIDs([]models.Match{m})
		for _, p := range m.Participants {
			if p.DiscordID != nil && *p.DiscordID != "" {
				ids = append(ids, *p.DiscordID)
			}
		}
		names, err := loadNameBook(tx, dedupe(ids))
		if err != nil {
			return err
		}

		detail = &MatchDetail{
			Match:        m,
			Winner:       names.displayOrDash(m.WinnerDiscordID),
			Loser:        names.displayOrDash(m.LoserDiscordID),
			Participants: make([]ParticipantView, 0, len(m.Participants)),
		}
		for _, p := range m.Participants {
			detail.Participants = append(detail.Participants, ParticipantView{
				Side:     p.Side,
				Name:     names.participantName(p),
				IsWinner: p.IsWinner,
				Score:    p.Score,
				Turns:    p.Turns,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (b nameBook) displayOrDash(discordID *string) string {
	if discordID == nil || *discordID == "" {
		return "-"
	}
	return b.DisplayName(*discordID)
}

// participantName: user nickname, participant name, AI name, discord id, "-".
func (b nameBook) participantName(p models.Participant) string {
	if id := deref(p.DiscordID); id != "" {
		if u, ok := b.users[id]; ok && u.NicknameOrEmpty() != "" {
			return *u.Nickname
		}
	}
	for _, s := range []*string{p.Name, p.AIName, p.DiscordID} {
		if v := deref(s); v != "" {
			return v
		}
	}
	return "-"
}

func participantCounts(tx *gorm.DB, matches []models.Match) (map[uint]int, error) {
	ids := make([]uint, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	var rows []struct {
		MatchID uint
		Count   int
	}
	if err := tx.Model(&models.Participant{}).
		Select("match_id, COUNT(id) AS count").
		Where("match_id IN ?", ids).
		Group("match_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	out := make(map[uint]int, len(rows))
	for _, r := range rows {
		out[r.MatchID] = r.Count
	}
	return out, nil
}

func matchDiscordIDs(matches []models.Match) []string {
	var ids []string
	for _, m := range matches {
		ids = append(ids, m.StarterDiscordID)
		if m.WinnerDiscordID != nil {
			ids = append(ids, *m.WinnerDiscordID)
		}
		if m.LoserDiscordID != nil {
			ids = append(ids, *m.LoserDiscordID)
		}
	}
	return dedupe(ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
