package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-rounds/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// LoginHandler обрабатывает POST /auth/login
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	token, admin, err := h.authService.Login(r.Context(), input.Username, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := jsonResponse{
		"token": token,
		"admin": jsonResponse{
			"id":       admin.ID,
			"username": admin.Username,
			"role":     admin.Role,
		},
	}
	if err := writeJSON(w, http.StatusOK, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterHandler обрабатывает POST /auth/register
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Code     string `json:"code"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	admin, err := h.authService.RedeemCode(r.Context(), input.Code, input.Username, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := jsonResponse{
		"admin": jsonResponse{
			"id":       admin.ID,
			"username": admin.Username,
			"role":     admin.Role,
		},
	}
	if err := writeJSON(w, http.StatusCreated, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateCodeHandler обрабатывает POST /auth/codes (только главный админ)
func (h *AuthHandler) GenerateCodeHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Role string `json:"role"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	code, err := h.authService.GenerateRegCode(r.Context(), input.Role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"code": code.Code, "role": code.Role}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
