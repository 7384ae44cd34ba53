package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"marketplace_go/internal/domain"
	"marketplace_go/internal/service"
)

type reviewRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

type adminDeleteRequest struct {
	Reason string `json:"reason"`
	// Advisory owner hint kept for wire compatibility; the audit row's
	// owner always comes from the listing itself.
	ProviderUserID int64 `json:"provider_user_id"`
}

func handleAdminDeleteService(delSvc *service.DeletionService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := CurrentUser(r)
		if admin == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		id, err := pathID(r, "serviceID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service id"})
			return
		}
		var req adminDeleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		res, err := delSvc.AdminDeleteService(r.Context(), admin.ID, id, req.Reason)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"deleted_service": res.Record,
		})
	}
}

func handleDeletionAuditLog(delSvc *service.DeletionService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := delSvc.AuditLog(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		if records == nil {
			records = []*domain.DeletionRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleFlaggedUsers(delSvc *service.DeletionService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flagged, err := delSvc.FlaggedUsers(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, flagged)
	}
}

func handleReviewFlaggedUser(delSvc *service.DeletionService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		if err := delSvc.ReviewFlaggedUser(r.Context(), userID, req.Action, req.Notes); err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
