package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-rounds/models"
	"github.com/Dosada05/tournament-rounds/services"
)

type MatchHandler struct {
	roundService services.RoundService
}

func NewMatchHandler(rs services.RoundService) *MatchHandler {
	return &MatchHandler{roundService: rs}
}

// RecordResultHandler обрабатывает POST /matches/{matchID}/result
func (h *MatchHandler) RecordResultHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input models.MatchResult
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.roundService.RecordResult(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ForfeitHandler обрабатывает POST /matches/{matchID}/forfeit
func (h *MatchHandler) ForfeitHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		WinnerID int `json:"winnerId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerID <= 0 {
		badRequestResponse(w, r, errors.New("winnerId must identify the advancing player"))
		return
	}

	outcome, err := h.roundService.ForfeitMatch(r.Context(), matchID, input.WinnerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
