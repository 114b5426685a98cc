package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/tournament-rounds/models"
	"github.com/Dosada05/tournament-rounds/repositories"
	"github.com/Dosada05/tournament-rounds/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	roundService      services.RoundService
	exportService     services.ExportService
}

func NewTournamentHandler(ts services.TournamentService, rs services.RoundService, es services.ExportService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		roundService:      rs,
		exportService:     es,
	}
}

// CreateHandler обрабатывает POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /tournaments/{tournamentID}
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListTournamentsFilter
	query := r.URL.Query()

	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		} else {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	} else {
		filter.Limit = 20
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		} else {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
	}

	tournaments, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /tournaments/{tournamentID}
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterPlayerHandler обрабатывает POST /tournaments/{tournamentID}/players
func (h *TournamentHandler) RegisterPlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.tournamentService.RegisterPlayer(r.Context(), id, input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler обрабатывает POST /tournaments/{tournamentID}/start
func (h *TournamentHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Start(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EndHandler обрабатывает POST /tournaments/{tournamentID}/end
func (h *TournamentHandler) EndHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.End(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler обрабатывает GET /tournaments/{tournamentID}/standings
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rows, err := h.tournamentService.Standings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": rows}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListRoundsHandler обрабатывает GET /tournaments/{tournamentID}/rounds
func (h *TournamentHandler) ListRoundsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rounds, err := h.roundService.ListRounds(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExportHandler обрабатывает POST /tournaments/{tournamentID}/export
func (h *TournamentHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.exportService.ExportSnapshot(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"export": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
