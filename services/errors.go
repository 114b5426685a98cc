package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Lifecycle and business-rule errors
	ErrInvalidState         = errors.New("operation is not permitted in the current state")
	ErrInsufficientPlayers  = errors.New("at least two registered players are required to start")
	ErrDuplicatePlayerName  = errors.New("player name is already registered in this tournament")
	ErrRoundClosed          = errors.New("round is already closed")
	ErrTournamentInProgress = errors.New("tournament still has rounds to play")
	ErrInvalidResult        = errors.New("match result is invalid")

	// Concurrency
	ErrConcurrentModification = errors.New("the tournament was modified concurrently, retry the operation")

	// Ошибки, специфичные для сущностей
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrMatchNotFound      = errors.New("match not found")

	// Auth
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrRegCodeInvalid     = errors.New("registration code is invalid or already used")

	// Export
	ErrExportUnavailable = errors.New("snapshot export is not configured")
)
