package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cancha-booking/internal/auth"
	"cancha-booking/internal/logger"
	"cancha-booking/internal/team"
	"cancha-booking/internal/utils"
)

type Handler struct {
	Teams  *team.Service
	Logger *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// CreateTeam registers a team owned by the caller.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Login required", "missing user identity"))
		return
	}

	var req team.CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Team name required", "name must not be empty"))
		return
	}

	created, err := h.Teams.CreateTeam(r.Context(), userID, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not create team", err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("team created", created))
}

// ListTeams returns the teams the caller belongs to.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Login required", "missing user identity"))
		return
	}

	teams, err := h.Teams.TeamsOf(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load teams", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("teams", teams))
}

// GetTeam returns a single team with its roster.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamId")

	t, err := h.Teams.GetTeam(r.Context(), teamID)
	if err != nil {
		if errors.Is(err, team.ErrTeamNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Team not found", err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load team", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("team", t))
}

type addPlayerRequest struct {
	DisplayName string `json:"displayName"`
	Position    string `json:"position,omitempty"`
}

// AddPlayer looks a user up by display name and appends them to the roster.
func (h *Handler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Login required", "missing user identity"))
		return
	}
	teamID := chi.URLParam(r, "teamId")

	var req addPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Player name required", "displayName must not be empty"))
		return
	}

	updated, err := h.Teams.AddPlayer(r.Context(), userID, teamID, req.DisplayName, req.Position)
	if err != nil {
		switch {
		case errors.Is(err, team.ErrTeamNotFound):
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Team not found", err.Error()))
		case errors.Is(err, team.ErrPlayerNotFound):
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Player not found", err.Error()))
		case errors.Is(err, team.ErrAmbiguousPlayer):
			writeJSON(w, http.StatusConflict, utils.ErrorResponse("More than one player with that name", err.Error()))
		case errors.Is(err, team.ErrAlreadyMember):
			writeJSON(w, http.StatusConflict, utils.ErrorResponse("Player already on the team", err.Error()))
		case errors.Is(err, team.ErrNotTeamOwner):
			writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Only the team owner can add players", err.Error()))
		case errors.Is(err, team.ErrVersionConflict):
			writeJSON(w, http.StatusConflict, utils.ErrorResponse("Team changed, try again", err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not add player", err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("player added", updated))
}
