package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"marketplace_go/internal/service"
)

type serviceCreateRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
}

type deleteServiceRequest struct {
	Reason string `json:"reason"`
}

func handleCreateService(listingSvc *service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req serviceCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		svc, err := listingSvc.Create(r.Context(), user.ID, service.ListingCreateInput{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Price:       req.Price,
		})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, svc)
	}
}

func handleListServices(listingSvc *service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := listingSvc.List(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		writeJSON(w, http.StatusOK, services)
	}
}

func handleListMyServices(listingSvc *service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		services, err := listingSvc.ListMine(r.Context(), user.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		writeJSON(w, http.StatusOK, services)
	}
}

func handleGetService(listingSvc *service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "serviceID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service id"})
			return
		}
		svc, err := listingSvc.Get(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, svc)
	}
}

func handleDeleteOwnService(delSvc *service.DeletionService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		id, err := pathID(r, "serviceID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service id"})
			return
		}
		var req deleteServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		res, err := delSvc.DeleteOwnService(r.Context(), user.ID, id, req.Reason)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"deleted_service":   res.Record,
			"remaining_deletes": res.Remaining,
		})
	}
}

// handleDeleteLimits never fails: storage errors degrade to a full quota
// inside the service.
func handleDeleteLimits(delSvc *service.DeletionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, delSvc.Limits(r.Context(), user.ID))
	}
}
