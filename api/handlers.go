package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"memory-match-server/auth"
	"memory-match-server/config"
	"memory-match-server/storage"
)

const bearerPrefix = "Bearer "

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (jwt.MapClaims, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Config       *config.Config
	HistoryStore storage.HistoryStore
	Auth         TokenValidator
}

// NewHandler creates a new API handler with the given dependencies.
// historyStore may be nil, in which case empty lists are returned.
func NewHandler(cfg *config.Config, historyStore storage.HistoryStore, validator TokenValidator) *Handler {
	return &Handler{
		Config:       cfg,
		HistoryStore: historyStore,
		Auth:         validator,
	}
}

// CORS sets CORS headers on the response. Call before writing body.
// Returns true when the request was a preflight and has been answered.
func (h *Handler) CORS(w http.ResponseWriter, r *http.Request) bool {
	origin := "*"
	if h.Config != nil && h.Config.AllowedOrigin != "" {
		origin = h.Config.AllowedOrigin
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// extractUserID validates the Authorization header and returns the user ID, or empty string on failure.
func (h *Handler) extractUserID(r *http.Request) string {
	if h.Auth == nil {
		return ""
	}
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return ""
	}
	claims, err := h.Auth.Validate(token)
	if err != nil {
		slog.Debug("rejected bearer token", "tag", "api", "err", err)
		return ""
	}
	return auth.UserIDFromClaims(claims)
}

// History returns the round history for the authenticated user.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := h.extractUserID(r)
	if userID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	list := []storage.RoundRecord{}
	if h.HistoryStore != nil {
		var err error
		list, err = h.HistoryStore.ListByUserID(r.Context(), userID)
		if err != nil {
			slog.Error("ListByUserID", "tag", "api", "err", err)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, list)
}

// LeaderboardResponse is the JSON structure for /api/leaderboard.
type LeaderboardResponse struct {
	Entries          []storage.LeaderboardEntry `json:"entries"`
	CurrentUserEntry *storage.LeaderboardEntry  `json:"current_user_entry"`
}

// Leaderboard returns the global leaderboard with optional current user entry.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if h.CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Zero or missing limit falls through to the store's default page size.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	entries := []storage.LeaderboardEntry{}
	if h.HistoryStore != nil {
		var err error
		entries, err = h.HistoryStore.ListLeaderboard(r.Context(), limit, offset)
		if err != nil {
			slog.Error("ListLeaderboard", "tag", "api", "err", err)
			http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
			return
		}
	}

	var currentUserEntry *storage.LeaderboardEntry
	authUserID := h.extractUserID(r)
	if authUserID != "" && h.HistoryStore != nil {
		inTop := false
		for i := range entries {
			if entries[i].UserID == authUserID {
				entries[i].IsCurrentUser = true
				inTop = true
				break
			}
		}
		if !inTop {
			cur, err := h.HistoryStore.GetLeaderboardEntryByUserID(r.Context(), authUserID)
			if err != nil {
				slog.Warn("GetLeaderboardEntryByUserID", "tag", "api", "err", err)
			} else if cur != nil {
				cur.IsCurrentUser = true
				currentUserEntry = cur
			}
		}
	}

	writeJSON(w, LeaderboardResponse{Entries: entries, CurrentUserEntry: currentUserEntry})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "tag", "api", "err", err)
	}
}
