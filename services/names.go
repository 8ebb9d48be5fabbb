package services

import (
	"fmt"

	"bluewar-ledger/models"

	"gorm.io/gorm"
)

const lookupChunk = 500

// nameBook resolves display names from two batched lookups, never per row.
type nameBook struct {
	users  map[string]models.User
	latest map[string]string
}

func loadNameBook(tx *gorm.DB, discordIDs []string) (nameBook, error) {
	users, err := usersByDiscordID(tx, discordIDs)
	if err != nil {
		return nameBook{}, err
	}
	latest, err := latestParticipantNames(tx, discordIDs)
	if err != nil {
		return nameBook{}, err
	}
	return nameBook{users: users, latest: latest}, nil
}

// DisplayName: nickname, else most recent participant name, else the raw id.
func (b nameBook) DisplayName(discordID string) string {
	if u, ok := b.users[discordID]; ok && u.NicknameOrEmpty() != "" {
		return *u.Nickname
	}
	if name, ok := b.latest[discordID]; ok {
		return name
	}
	return discordID
}

func chunked(ids []string, fn func([]string) error) error {
	for start := 0; start < len(ids); start += lookupChunk {
		end := min(start+lookupChunk, len(ids))
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func usersByDiscordID(tx *gorm.DB, discordIDs []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(discordIDs))
	err := chunked(discordIDs, func(chunk []string) error {
		var users []models.User
		if err := tx.Where("discord_id IN ?", chunk).Find(&users).Error; err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		for _, u := range users {
			out[u.DiscordID] = u
		}
		return nil
	})
	return out, err
}

// latestParticipantNames maps each id to the name on its highest-id participant row with a non-empty name.
func latestParticipantNames(tx *gorm.DB, discordIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(discordIDs))
	err := chunked(discordIDs, func(chunk []string) error {
		latestIDs := tx.Model(&models.Participant{}).
			Select("MAX(id)").
			Where("discord_id IN ? AND name IS NOT NULL AND name <> ''", chunk).
			Group("discord_id")

		var rows []struct {
			DiscordID string
			Name      string
		}
		if err := tx.Model(&models.Participant{}).
			Select("discord_id, name").
			Where("id IN (?)", latestIDs).
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("load participant names: %w", err)
		}
		for _, r := range rows {
			out[r.DiscordID] = r.Name
		}
		return nil
	})
	return out, err
}
