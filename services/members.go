package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bluewar-ledger/auth"
	"bluewar-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const bootstrapMetaPrefix = "member_admin_bootstrap:"

type RegisterRequest struct {
	DiscordID       string `json:"discord_id" validate:"required,login_id"`
	Nickname        string `json:"nickname" validate:"required,max=30"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// MemberService owns member accounts. AdminIDs are login ids that config grants admin.
type MemberService struct {
	DB       *gorm.DB
	AdminIDs []string
	Log      *zap.Logger
}

func NewMemberService(db *gorm.DB, adminIDs []string, log *zap.Logger) *MemberService {
	return &MemberService{DB: db, AdminIDs: adminIDs, Log: log}
}

func (s *MemberService) isConfiguredAdmin(discordID string) bool {
	for _, id := range s.AdminIDs {
		if id == discordID {
			return true
		}
	}
	return false
}

// Register creates an active member. Configured admin ids are promoted on creation.
func (s *MemberService) Register(ctx context.Context, req RegisterRequest) (*models.MemberUser, error) {
	req.DiscordID = strings.TrimSpace(req.DiscordID)
	req.Nickname = strings.TrimSpace(req.Nickname)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	member := models.MemberUser{
		DiscordID:    req.DiscordID,
		Nickname:     req.Nickname,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      s.isConfiguredAdmin(req.DiscordID),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MemberUser{}).Where("discord_id = ?", member.DiscordID).Count(&count).Error; err != nil {
			return fmt.Errorf("check member id: %w", err)
		}
		if count > 0 {
			return ErrDuplicateMember
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("member registered", zap.String("discord_id", member.DiscordID), zap.Bool("is_admin", member.IsAdmin))
	return &member, nil
}

// Authenticate checks a login, syncs the configured admin flag and stamps last_login_at.
func (s *MemberService) Authenticate(ctx context.Context, discordID, password string) (*models.MemberUser, error) {
	discordID = strings.TrimSpace(discordID)
	var member models.MemberUser
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("discord_id = ?", discordID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		if !auth.VerifyPassword(password, member.PasswordHash) {
			return ErrInvalidCredentials
		}
		if !member.IsActive {
			return ErrMemberInactive
		}

		now := time.Now().UTC()
		updates := map[string]any{"last_login_at": now}
		if s.isConfiguredAdmin(member.DiscordID) && !member.IsAdmin {
			updates["is_admin"] = true
			member.IsAdmin = true
		}
		member.LastLoginAt = &now
		return tx.Model(&models.MemberUser{}).Where("id = ?", member.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Promote grants admin to the member with the given login id.
func (s *MemberService) Promote(ctx context.Context, discordID string) (*models.MemberUser, error) {
	discordID = strings.TrimSpace(discordID)
	var member models.MemberUser
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("discord_id = ?", discordID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		if member.IsAdmin {
			return nil
		}
		member.IsAdmin = true
		return tx.Model(&member).Update("is_admin", true).Error
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("member promoted to admin", zap.String("discord_id", member.DiscordID))
	return &member, nil
}

// BootstrapAdmins promotes configured admin ids that already have accounts.
// Each id is handled once; an AppMeta marker records it.
func (s *MemberService) BootstrapAdmins(ctx context.Context) (int, error) {
	promoted := 0
	for _, id := range s.AdminIDs {
		key := bootstrapMetaPrefix + id
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var marker int64
			if err := tx.Model(&models.AppMeta{}).Where(&models.AppMeta{Key: key}).Count(&marker).Error; err != nil {
				return err
			}
			if marker > 0 {
				return nil
			}

			var member models.MemberUser
			if err := tx.Where("discord_id = ?", id).First(&member).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}
			if !member.IsAdmin {
				if err := tx.Model(&member).Update("is_admin", true).Error; err != nil {
					return err
				}
				promoted++
			}

			stamp := time.Now().UTC().Format(time.RFC3339)
			return tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.AppMeta{Key: key, Value: &stamp}).Error
		})
		if err != nil {
			return promoted, fmt.Errorf("bootstrap admin %s: %w", id, err)
		}
	}
	if promoted > 0 {
		s.Log.Info("bootstrapped member admins", zap.Int("promoted", promoted))
	}
	return promoted, nil
}
