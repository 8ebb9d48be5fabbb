// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bluewar-ledger/models"

	"gorm.io/gorm"
)

type CreateUserRequest struct {
	DiscordID string  `json:"discord_id" validate:"required,max=32"`
	Nickname  *string `json:"nickname" validate:"omitempty,max=100"`
	Note      *string `json:"note"`
}

// UpdateUserRequest is a partial update; nil fields are left alone.
type UpdateUserRequest struct {
	DiscordID *string `json:"discord_id,omitempty" validate:"omitempty,min=1,max=32"`
	Nickname  *string `json:"nickname,omitempty" validate:"omitempty,max=100"`
	Note      *string `json:"note,omitempty"`
}

type UpdateStatsRequest struct {
	BaseWins   *int `json:"base_wins" validate:"required"`
	BaseLosses *int `json:"base_losses" validate:"required"`
}

type Dashboard struct {
	TotalUsers    int64          `json:"total_users"`
	TotalMatches  int64          `json:"total_matches"`
	RecentMatches []models.Match `json:"recent_matches"`
}

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// SearchUsers lists users by id, optionally filtered by a case-insensitive
// match on discord id or nickname.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	users := []models.User{}
	db := s.DB.WithContext(ctx).Model(&models.User{}).Order("id ASC")

	if q := strings.TrimSpace(query); q != "" {
		searchTerm := containsPattern(q)
		db = db.Where(`LOWER(discord_id) LIKE ? ESCAPE '\' OR LOWER(nickname) LIKE ? ESCAPE '\'`, searchTerm, searchTerm)
	}
	if err := db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.DiscordID = strings.TrimSpace(req.DiscordID)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	user := models.User{
		DiscordID: req.DiscordID,
		Nickname:  models.StringPtr(strings.TrimSpace(deref(req.Nickname))),
		Note:      models.StringPtr(deref(req.Note)),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := discordIDTaken(tx, user.DiscordID, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateUser
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uint, req UpdateUserRequest) (*models.User, error) {
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var user models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		updates := map[string]any{}
		if req.DiscordID != nil {
			newID := strings.TrimSpace(*req.DiscordID)
			if newID == "" {
				return fmt.Errorf("%w: discord_id must not be blank", ErrInvalidInput)
			}
			if newID != user.DiscordID {
				taken, err := discordIDTaken(tx, newID, user.ID)
				if err != nil {
					return err
				}
				if taken {
					return ErrDuplicateUser
				}
				updates["discord_id"] = newID
			}
		}
		if req.Nickname != nil {
			updates["nickname"] = models.StringPtr(strings.TrimSpace(*req.Nickname))
		}
		if req.Note != nil {
			updates["note"] = models.StringPtr(*req.Note)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return fmt.Errorf("update user %d: %w", id, err)
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateStats overwrites base stats, clamping negatives to 0.
func (s *UserService) UpdateStats(ctx context.Context, id uint, req UpdateStatsRequest) (*models.User, error) {
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var user models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		user.BaseWins = max(0, *req.BaseWins)
		user.BaseLosses = max(0, *req.BaseLosses)
		return tx.Model(&user).Select("base_wins", "base_losses").Updates(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Dashboard returns headline counts and the 10 most recently started matches.
func (s *UserService) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{RecentMatches: []models.Match{}}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Count(&d.TotalUsers).Error; err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if err := tx.Model(&models.Match{}).Count(&d.TotalMatches).Error; err != nil {
			return fmt.Errorf("count matches: %w", err)
		}
		if err := tx.Order("started_at DESC").Order("id DESC").Limit(10).Find(&d.RecentMatches).Error; err != nil {
			return fmt.Errorf("recent matches: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func discordIDTaken(tx *gorm.DB, discordID string, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.User{}).Where("discord_id = ?", discordID)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check discord id: %w", err)
	}
	return count > 0, nil
}
