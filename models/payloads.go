package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PairingPayloadVersion is the current shape version of the round pairing
// payload stored in rounds.data.
const PairingPayloadVersion = 1

// ErrInvalidPayload reports a stored JSON payload whose shape does not match
// the expected versioned record. Unknown or missing fields are rejected
// rather than silently defaulted.
var ErrInvalidPayload = errors.New("payload has invalid shape")

// PairingSlot is one pairing record of a round. Player2ID is null for a
// bracket padding bye.
type PairingSlot struct {
	Player1ID   int  `json:"player1Id"`
	Player2ID   *int `json:"player2Id"`
	TableNumber int  `json:"tableNumber"`
}

// RoundPairings is the ordered pairing payload produced at round creation
// and never mutated afterwards.
type RoundPairings struct {
	Version      int           `json:"version"`
	Pairings     []PairingSlot `json:"pairings"`
	ByePlayerID  *int          `json:"byePlayerId,omitempty"`
	ForcedRepeat bool          `json:"forcedRepeat,omitempty"`
}

func (p *RoundPairings) Validate() error {
	if p.Version != PairingPayloadVersion {
		return fmt.Errorf("%w: unsupported pairing payload version %d", ErrInvalidPayload, p.Version)
	}
	if len(p.Pairings) == 0 && p.ByePlayerID == nil {
		return fmt.Errorf("%w: pairing payload is empty", ErrInvalidPayload)
	}
	for i, slot := range p.Pairings {
		if slot.Player1ID <= 0 {
			return fmt.Errorf("%w: pairing %d has no first player", ErrInvalidPayload, i)
		}
		if slot.Player2ID != nil && *slot.Player2ID == slot.Player1ID {
			return fmt.Errorf("%w: pairing %d pairs a player with themselves", ErrInvalidPayload, i)
		}
	}
	return nil
}

// ParseRoundPairings decodes a stored pairing payload strictly: unknown
// fields fail the decode instead of being dropped.
func ParseRoundPairings(raw []byte) (*RoundPairings, error) {
	var p RoundPairings
	if err := decodeStrict(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// MatchResult is the recorded outcome of a match. WinnerID is null for a
// draw or a bye auto-advance.
type MatchResult struct {
	Player1Score int  `json:"player1Score"`
	Player2Score int  `json:"player2Score"`
	WinnerID     *int `json:"winnerId"`
}

func (r *MatchResult) Validate() error {
	if r.Player1Score < 0 || r.Player2Score < 0 {
		return fmt.Errorf("%w: negative match score", ErrInvalidPayload)
	}
	return nil
}

// ParseMatchResult decodes a stored result payload strictly.
func ParseMatchResult(raw []byte) (*MatchResult, error) {
	var r MatchResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeStrict(raw []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}
