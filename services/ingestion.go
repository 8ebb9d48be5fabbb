package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"bluewar-ledger/metrics"
	"bluewar-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchReport is the body the Discord bot posts after each game.
type MatchReport struct {
	Mode             *string      `json:"mode" validate:"required,max=64"`
	Status           *string      `json:"status" validate:"required,max=64"`
	StarterDiscordID string       `json:"starter_discord_id" validate:"required,max=32"`
	WinnerDiscordID  *string      `json:"winner_discord_id" validate:"omitempty,max=32"`
	LoserDiscordID   *string      `json:"loser_discord_id" validate:"omitempty,max=32"`
	WinGap           *int         `json:"win_gap"`
	TotalRounds      *int         `json:"total_rounds"`
	StartedAt        FlexibleTime `json:"started_at" validate:"required"`
	FinishedAt       FlexibleTime `json:"finished_at" validate:"required"`
	Note             *string      `json:"note"`
	ReviewLog        *string      `json:"review_log"`

	Participants []ParticipantReport `json:"participants" validate:"required,dive"`
}

type ParticipantReport struct {
	DiscordID *string `json:"discord_id" validate:"omitempty,max=32"`
	Name      *string `json:"name" validate:"omitempty,max=100"`
	AIName    *string `json:"ai_name" validate:"omitempty,max=50"`
	Side      int     `json:"side" validate:"oneof=1 2"`
	IsWinner  *bool   `json:"is_winner" validate:"required"`
	Score     *int    `json:"score"`
	Turns     *int    `json:"turns"`
}

// Validate checks the report before anything touches the database.
func (r *MatchReport) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.FinishedAt.Before(r.StartedAt.Time) {
		return fmt.Errorf("%w: finished_at precedes started_at", ErrInvalidInput)
	}
	return nil
}

func (r *MatchReport) toMatch() models.Match {
	return models.Match{
		Mode:             NormalizeMode(deref(r.Mode)),
		Status:           NormalizeStatus(deref(r.Status)),
		StarterDiscordID: r.StarterDiscordID,
		WinnerDiscordID:  r.WinnerDiscordID,
		LoserDiscordID:   r.LoserDiscordID,
		WinGap:           r.WinGap,
		TotalRounds:      r.TotalRounds,
		StartedAt:        r.StartedAt.UTC(),
		FinishedAt:       r.FinishedAt.UTC(),
		Note:             r.Note,
		ReviewLog:        r.ReviewLog,
	}
}

type IngestionService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewIngestionService(db *gorm.DB, log *zap.Logger) *IngestionService {
	return &IngestionService{DB: db, Log: log}
}

// RecordMatch stores a match and its participants in one transaction and
// returns the new match id. Users referenced by discord id are created on
// first sight; an existing user only gets an empty nickname backfilled.
func (s *IngestionService) RecordMatch(ctx context.Context, report MatchReport) (uint, error) {
	if err := report.Validate(); err != nil {
		metrics.IngestFailed("validation")
		return 0, err
	}

	match := report.toMatch()
	var usersCreated int

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&match).Error; err != nil {
			return fmt.Errorf("insert match: %w", err)
		}

		// Upsert in discord id order so concurrent reports lock user rows in the same order.
		ids, names := report.playerIDs()
		users := make(map[string]uint, len(ids))
		for _, discordID := range ids {
			user, created, err := ensureUser(tx, discordID, names[discordID])
			if err != nil {
				return err
			}
			if created {
				usersCreated++
			}
			users[discordID] = user.ID
		}

		for i, p := range report.Participants {
			var userID *uint
			if id, ok := users[deref(p.DiscordID)]; ok {
				userID = &id
			}

			row := models.Participant{
				MatchID:   match.ID,
				UserID:    userID,
				DiscordID: emptyToNil(p.DiscordID),
				Name:      p.Name,
				AIName:    p.AIName,
				Side:      p.Side,
				IsWinner:  *p.IsWinner,
				Score:     p.Score,
				Turns:     p.Turns,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert participant %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.IngestFailed("storage")
		s.Log.Error("❌ match ingestion rolled back",
			zap.String("mode", match.Mode),
			zap.String("starter", match.StarterDiscordID),
			zap.Error(err),
		)
		return 0, err
	}

	metrics.MatchIngested(match.Mode)
	s.Log.Info("✅ match recorded",
		zap.Uint("match_id", match.ID),
		zap.String("mode", match.Mode),
		zap.String("status", match.Status),
		zap.Int("participants", len(report.Participants)),
		zap.Int("users_created", usersCreated),
	)
	return match.ID, nil
}

// ensureUser finds or creates the User for discordID inside tx. A concurrent
// creator wins the unique index; the loser falls through to the re-select.
// nickname only fills an empty nickname, it never replaces one.
func ensureUser(tx *gorm.DB, discordID, nickname string) (*models.User, bool, error) {
	user := models.User{DiscordID: discordID, Nickname: models.StringPtr(nickname)}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "discord_id"}},
		DoNothing: true,
	}).Create(&user)
	if res.Error != nil {
		return nil, false, fmt.Errorf("upsert user %s: %w", discordID, res.Error)
	}
	if res.RowsAffected == 1 && user.ID != 0 {
		return &user, true, nil
	}

	var existing models.User
	if err := tx.Where("discord_id = ?", discordID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("user %s vanished after conflict: %w", discordID, err)
		}
		return nil, false, fmt.Errorf("load user %s: %w", discordID, err)
	}
	if existing.NicknameOrEmpty() == "" && nickname != "" {
		if err := tx.Model(&existing).Update("nickname", nickname).Error; err != nil {
			return nil, false, fmt.Errorf("backfill nickname for %s: %w", discordID, err)
		}
		existing.Nickname = &nickname
	}
	return &existing, false, nil
}

// playerIDs returns the distinct non-empty participant discord ids, sorted,
// with the first non-empty name reported for each.
func (r MatchReport) playerIDs() ([]string, map[string]string) {
	names := make(map[string]string)
	var ids []string
	for _, p := range r.Participants {
		discordID := deref(p.DiscordID)
		if discordID == "" {
			continue
		}
		name, seen := names[discordID]
		if !seen {
			ids = append(ids, discordID)
		}
		if name == "" {
			names[discordID] = deref(p.Name)
		}
	}
	sort.Strings(ids)
	return ids, names
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
