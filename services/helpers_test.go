package services_test

import (
	"context"
	"testing"
	"time"

	"bluewar-ledger/services"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

var baseTime = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func player(discordID, name string, side int, won bool) services.ParticipantReport {
	p := services.ParticipantReport{Side: side, IsWinner: boolPtr(won)}
	if discordID != "" {
		p.DiscordID = strPtr(discordID)
	}
	if name != "" {
		p.Name = strPtr(name)
	}
	return p
}

// duel builds a decided two-player report where winner beat loser by gap.
func duel(mode, winner, loser string, gap int) services.MatchReport {
	return services.MatchReport{
		Mode:             strPtr(mode),
		Status:           strPtr("finished"),
		StarterDiscordID: winner,
		WinnerDiscordID:  strPtr(winner),
		LoserDiscordID:   strPtr(loser),
		WinGap:           intPtr(gap),
		StartedAt:        services.FlexibleTime{Time: baseTime},
		FinishedAt:       services.FlexibleTime{Time: baseTime.Add(5 * time.Minute)},
		Participants: []services.ParticipantReport{
			player(winner, "", 1, true),
			player(loser, "", 2, false),
		},
	}
}

func record(t *testing.T, db *gorm.DB, reports ...services.MatchReport) []uint {
	t.Helper()
	svc := services.NewIngestionService(db, zap.NewNop())
	ids := make([]uint, 0, len(reports))
	for _, r := range reports {
		id, err := svc.RecordMatch(context.Background(), r)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}
