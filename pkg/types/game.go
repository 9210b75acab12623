package types

import (
	"fmt"
	"strings"
)

// Phase is the state of a game session.
type Phase string

// Session phases. A session starts idle, plays the tree, may refine after a
// rejected guess or fill attributes for a new entity, and returns to idle.
const (
	PhaseIdle              Phase = "idle"
	PhasePlaying           Phase = "playing"
	PhaseRefining          Phase = "refining"
	PhaseFillingAttributes Phase = "filling_attributes"
)

// Answer tokens.
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// ParseAnswer converts a yes/no token to 1/0. Case and surrounding
// whitespace are ignored. Anything else returns ErrInvalidInput.
func ParseAnswer(token string) (uint8, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case AnswerYes:
		return 1, nil
	case AnswerNo:
		return 0, nil
	default:
		return 0, fmt.Errorf("answer %q: %w", token, ErrInvalidInput)
	}
}

// Response is what every session operation returns: either the next
// question or a guess, plus the flags a client needs to render it.
type Response struct {
	SessionID     string `json:"session_id,omitempty"`
	Phase         Phase  `json:"phase"`
	IsGuess       bool   `json:"is_guess"`
	Question      string `json:"question,omitempty"`
	Feature       string `json:"feature,omitempty"`
	Character     string `json:"character,omitempty"`
	IsSecondGuess bool   `json:"is_second_guess"`
	CanGoBack     bool   `json:"can_go_back"`
	IsRefining    bool   `json:"is_refining"`
	IsFilling     bool   `json:"is_filling"`
	NeedsQuestion bool   `json:"needs_question,omitempty"`
	Learned       bool   `json:"learned,omitempty"`
}

// Correction describes a rejected guess: the entity the player had in mind,
// the entity that was wrongly guessed, and optionally a yes/no question that
// tells them apart together with its answer for the correct entity.
type Correction struct {
	Correct  string
	Wrong    string
	Question string
	Answer   uint8
}
