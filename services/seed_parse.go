package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	seedWinKeys  = []string{"base_wins", "wins", "win", "pvp_wins", "pvp_win", "w"}
	seedLossKeys = []string{"base_losses", "losses", "loss", "pvp_losses", "pvp_loss", "l"}
	seedNameKeys = []string{"nickname", "name", "display_name", "username"}
)

// SeedEntry is one player's baseline record.
type SeedEntry struct {
	DiscordID string
	Wins      int
	Losses    int
	Name      string
}

// ParseSeed reads {"users": {id: record}} or a bare {id: record} mapping.
// Entries that are not objects or have a blank id are skipped; bad counts are
// ErrMalformedSeed. Entries come back sorted by discord id.
func ParseSeed(raw []byte) ([]SeedEntry, int, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil || root == nil {
		return nil, 0, fmt.Errorf("%w: root must be a JSON object", ErrMalformedSeed)
	}

	records := root
	if usersRaw, ok := root["users"]; ok {
		records = nil
		trimmed := bytes.TrimSpace(usersRaw)
		if !bytes.Equal(trimmed, []byte("null")) {
			if err := json.Unmarshal(trimmed, &records); err != nil {
				return nil, 0, fmt.Errorf("%w: users must be a JSON object", ErrMalformedSeed)
			}
		}
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]SeedEntry, 0, len(ids))
	skipped := 0
	for _, rawID := range ids {
		id := strings.TrimSpace(rawID)
		if id == "" {
			skipped++
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(records[rawID]))
		dec.UseNumber()
		var record map[string]any
		if err := dec.Decode(&record); err != nil || record == nil {
			skipped++
			continue
		}

		wins, err := pickCount(record, seedWinKeys)
		if err != nil {
			return nil, skipped, fmt.Errorf("%w: %s wins: %v", ErrMalformedSeed, id, err)
		}
		losses, err := pickCount(record, seedLossKeys)
		if err != nil {
			return nil, skipped, fmt.Errorf("%w: %s losses: %v", ErrMalformedSeed, id, err)
		}
		entries = append(entries, SeedEntry{
			DiscordID: id,
			Wins:      wins,
			Losses:    losses,
			Name:      pickName(record),
		})
	}
	return entries, skipped, nil
}

// pickCount takes the first present, non-null key. Absent everywhere means 0.
func pickCount(record map[string]any, keys []string) (int, error) {
	for _, k := range keys {
		v, ok := record[k]
		if !ok || v == nil {
			continue
		}
		n, err := toCount(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", k, err)
		}
		return n, nil
	}
	return 0, nil
}

func toCount(v any) (int, error) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
		return 0, fmt.Errorf("out of range: %v", f)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative count %v", f)
	}
	return int(f), nil
}

func pickName(record map[string]any) string {
	for _, k := range seedNameKeys {
		if s, ok := record[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
