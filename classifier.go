package courtbot

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// CourtType is a normalized court label understood by the cost table.
type CourtType string

const (
	CourtFutbol CourtType = "futbol"
	CourtVoley  CourtType = "voley"

	// CourtNone means no court type could be determined.
	CourtNone CourtType = ""
)

// courtKeywords lists the accepted spellings per court family;
// courtPriority fixes which family wins when a text mentions both.
var (
	courtKeywords = map[CourtType][]string{
		CourtFutbol: {"futbol", "fútbol"},
		CourtVoley:  {"voley", "vóley", "voleibol"},
	}
	courtPriority = []CourtType{CourtFutbol, CourtVoley}
)

// courtCosts is the credit price per court type; labels missing from the
// table cost defaultCourtCost.
var courtCosts = map[CourtType]int{
	CourtFutbol: 50,
	CourtVoley:  30,
}

const defaultCourtCost = 50

// negativeResponses are the confirmation values treated as a cancellation.
var negativeResponses = map[string]struct{}{
	"no":        {},
	"nop":       {},
	"negativo":  {},
	"cancelar":  {},
	"cancelo":   {},
	"nunca":     {},
	"no quiero": {},
}

// DetectCourtType maps a free-form utterance to a court type by
// case-insensitive substring match. Returns CourtNone for empty input or
// when no family keyword appears.
func DetectCourtType(text string) CourtType {
	if text == "" {
		return CourtNone
	}

	lower := strings.ToLower(text)
	for _, court := range courtPriority {
		for _, keyword := range courtKeywords[court] {
			if strings.Contains(lower, keyword) {
				log.Debug().Str("court", string(court)).Str("text", text).Msg("court type detected")
				return court
			}
		}
	}

	log.Debug().Str("text", text).Msg("no court type detected")
	return CourtNone
}

// CourtCost returns the credit price for a court type.
func CourtCost(court CourtType) int {
	if cost, ok := courtCosts[court]; ok {
		return cost
	}
	return defaultCourtCost
}

// IsNegative reports whether a confirmation value is one of the accepted
// cancellation phrases, ignoring case and surrounding whitespace.
func IsNegative(confirmation string) bool {
	_, ok := negativeResponses[strings.ToLower(strings.TrimSpace(confirmation))]
	return ok
}
