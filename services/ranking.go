package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"bluewar-ledger/metrics"
	"bluewar-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	RankingModeAll      = "all"
	DefaultRankingLimit = 50
	MaxRankingLimit     = 200
)

type RankingRow struct {
	Rank        int     `json:"rank"`
	DiscordID   string  `json:"discord_id"`
	Name        string  `json:"name"`
	Mode        string  `json:"mode"`
	Matches     int     `json:"matches"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	BaseWins    int     `json:"base_wins"`
	BaseLosses  int     `json:"base_losses"`
	TotalWins   int     `json:"total_wins"`
	TotalLosses int     `json:"total_losses"`
	WinRate     float64 `json:"win_rate"`
	GapPlus     int     `json:"gap_plus"`
	GapMinus    int     `json:"gap_minus"`
	NetGap      int     `json:"net_gap"`
}

// ParseRankingMode maps anything other than pvp, practice or all to pvp.
func ParseRankingMode(raw string) string {
	switch m := strings.ToLower(strings.TrimSpace(raw)); m {
	case models.ModePvP, models.ModePractice, RankingModeAll:
		return m
	default:
		return models.ModePvP
	}
}

// ParseRankingLimit defaults non-numeric input to 50 and clamps to [1,200].
func ParseRankingLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultRankingLimit
	}
	return ClampRankingLimit(n)
}

func ClampRankingLimit(n int) int {
	return max(1, min(n, MaxRankingLimit))
}

type RankingService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewRankingService(db *gorm.DB, log *zap.Logger) *RankingService {
	return &RankingService{DB: db, Log: log}
}

type tally struct {
	wins, losses, gapPlus, gapMinus int
}

// ComputeRanking aggregates decided matches into a ranked leaderboard.
// It is recomputed from the ledger on every call.
func (s *RankingService) ComputeRanking(ctx context.Context, mode string, limit int) ([]RankingRow, error) {
	mode = ParseRankingMode(mode)
	limit = ClampRankingLimit(limit)
	start := time.Now()
	defer func() { metrics.ObserveRanking(mode, time.Since(start)) }()

	var rows []RankingRow
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var decided []models.Match
		q := tx.Model(&models.Match{}).
			Select("id", "winner_discord_id", "loser_discord_id", "win_gap").
			Where("winner_discord_id IS NOT NULL AND loser_discord_id IS NOT NULL")
		if mode != RankingModeAll {
			q = q.Where("mode = ?", mode)
		}
		if err := q.Order("id DESC").Find(&decided).Error; err != nil {
			return fmt.Errorf("load decided matches: %w", err)
		}

		tallies := make(map[string]*tally)
		var ids []string
		get := func(id string) *tally {
			t, ok := tallies[id]
			if !ok {
				t = &tally{}
				tallies[id] = t
				ids = append(ids, id)
			}
			return t
		}
		for _, m := range decided {
			gap := 0
			if m.WinGap != nil {
				gap = *m.WinGap
			}
			w := get(*m.WinnerDiscordID)
			w.wins++
			w.gapPlus += gap
			l := get(*m.LoserDiscordID)
			l.losses++
			l.gapMinus += gap
		}
		if len(ids) == 0 {
			return nil
		}

		names, err := loadNameBook(tx, ids)
		if err != nil {
			return err
		}

		rows = make([]RankingRow, 0, len(ids))
		for _, id := range ids {
			t := tallies[id]
			row := RankingRow{
				DiscordID: id,
				Name:      names.DisplayName(id),
				Mode:      mode,
				Wins:      t.wins,
				Losses:    t.losses,
				Matches:   t.wins + t.losses,
				GapPlus:   t.gapPlus,
				GapMinus:  t.gapMinus,
				NetGap:    t.gapPlus - t.gapMinus,
			}
			if u, ok := names.users[id]; ok {
				row.BaseWins = u.BaseWins
				row.BaseLosses = u.BaseLosses
			}
			row.TotalWins = row.Wins + row.BaseWins
			row.TotalLosses = row.Losses + row.BaseLosses
			if battles := row.TotalWins + row.TotalLosses; battles > 0 {
				row.WinRate = float64(row.TotalWins) / float64(battles) * 100
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	SortRanking(rows)
	for i := range rows {
		rows[i].Rank = i + 1
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []RankingRow{}
	}
	return rows, nil
}

// SortRanking orders by net_gap, total_wins and matches descending, then name
// and discord id ascending. No two distinct ids compare equal.
func SortRanking(rows []RankingRow) {
	slices.SortFunc(rows, func(a, b RankingRow) int {
		if c := cmp.Compare(b.NetGap, a.NetGap); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalWins, a.TotalWins); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Matches, a.Matches); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.DiscordID, b.DiscordID)
	})
}
