package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"bluewar-ledger/metrics"
	"bluewar-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedMetaKey stores the sha256 of the last applied seed content.
const SeedMetaKey = "blue_records_seed_sha256"

type SeedResult struct {
	Source  string `json:"source"`
	Found   bool   `json:"found"`
	Applied bool   `json:"applied"`
	SHA256  string `json:"sha256,omitempty"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
}

type SeedService struct {
	DB     *gorm.DB
	Source SeedSource
	Log    *zap.Logger
}

func NewSeedService(db *gorm.DB, source SeedSource, log *zap.Logger) *SeedService {
	return &SeedService{DB: db, Source: source, Log: log}
}

// EnsureBlueRecordsSeed overlays the seed onto Users when its content hash
// differs from the stored marker. An unreadable source is logged and skipped;
// malformed content is returned as ErrMalformedSeed.
func (s *SeedService) EnsureBlueRecordsSeed(ctx context.Context) (SeedResult, error) {
	res := SeedResult{Source: s.Source.Describe()}

	raw, err := s.Source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrSeedNotFound) {
			s.Log.Info("seed source not present, skipping", zap.String("source", res.Source))
		} else {
			s.Log.Warn("⚠️ seed source unreachable, skipping", zap.String("source", res.Source), zap.Error(err))
		}
		metrics.SeedRun("missing")
		return res, nil
	}
	res.Found = true

	sum := sha256.Sum256(raw)
	res.SHA256 = hex.EncodeToString(sum[:])

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meta models.AppMeta
		err := tx.Where(&models.AppMeta{Key: SeedMetaKey}).Take(&meta).Error
		switch {
		case err == nil:
			if meta.Value != nil && *meta.Value == res.SHA256 {
				return nil
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("read seed marker: %w", err)
		}

		entries, skipped, err := ParseSeed(raw)
		if err != nil {
			return err
		}
		res.Skipped = skipped

		for _, e := range entries {
			user, created, err := ensureUser(tx, e.DiscordID, e.Name)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
				"base_wins":   e.Wins,
				"base_losses": e.Losses,
			}).Error; err != nil {
				return fmt.Errorf("overwrite base stats for %s: %w", e.DiscordID, err)
			}
			if created {
				res.Created++
			} else {
				res.Updated++
			}
		}

		marker := models.AppMeta{Key: SeedMetaKey, Value: &res.SHA256, UpdatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&marker).Error; err != nil {
			return fmt.Errorf("write seed marker: %w", err)
		}
		res.Applied = true
		return nil
	})
	if err != nil {
		metrics.SeedRun("error")
		return res, err
	}

	if res.Applied {
		metrics.SeedRun("applied")
		s.Log.Info("✅ seed applied",
			zap.String("source", res.Source),
			zap.String("sha256", res.SHA256),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("skipped", res.Skipped),
		)
	} else {
		metrics.SeedRun("unchanged")
		s.Log.Debug("seed unchanged", zap.String("source", res.Source))
	}
	return res, nil
}
