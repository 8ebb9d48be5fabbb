package services

import (
	"strings"

	"bluewar-ledger/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var modeAliases = map[string]string{
	"pv":       models.ModePractice,
	"pve":      models.ModePractice,
	"ai":       models.ModePractice,
	"practice": models.ModePractice,
	"pvp":      models.ModePvP,
	"versus":   models.ModePvP,
	"vs":       models.ModePvP,
}

func lowerTrim(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// NormalizeMode canonicalizes a bot-reported mode. Unrecognized values pass through.
func NormalizeMode(raw string) string {
	m := lowerTrim(raw)
	if m == "" {
		return models.ModeUnknown
	}
	if canonical, ok := modeAliases[m]; ok {
		return canonical
	}
	return m
}

// NormalizeStatus lower-cases a bot-reported status; empty becomes "unknown".
func NormalizeStatus(raw string) string {
	s := lowerTrim(raw)
	if s == "" {
		return models.StatusUnknown
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern builds a case-folded LIKE pattern matching q literally.
// Use it with "LIKE ? ESCAPE '\'".
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(lowerTrim(q)) + "%"
}
