package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"marketplace_go/internal/domain"
	"marketplace_go/internal/service"
	"marketplace_go/internal/ws"
)

type conversationStartRequest struct {
	ServiceID    int64 `json:"serviceId"`
	FreelancerID int64 `json:"freelancerId"`
}

type messageSendRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
}

type markReadRequest struct {
	ConversationID int64 `json:"conversation_id"`
}

func handleStartConversation(msgSvc *service.MessagingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req conversationStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.ServiceID == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "serviceId is required"})
			return
		}

		conv, created, err := msgSvc.StartConversation(r.Context(), user.ID, req.ServiceID, req.FreelancerID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]any{
			"conversationId": conv.ID,
			"alreadyExists":  !created,
		})
	}
}

func handleSendMessage(msgSvc *service.MessagingService, hub *ws.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req messageSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := msgSvc.SendMessage(r.Context(), user.ID, req.ConversationID, req.Message)
		if err != nil {
			writeError(w, log, err)
			return
		}
		msg.SenderName = user.Username

		// Live push to the other participant, if connected.
		if conv, err := msgSvc.GetConversation(r.Context(), user.ID, req.ConversationID); err == nil {
			hub.SendToUser(conv.OtherParticipant(user.ID), ws.Event{Type: "message", Payload: msg})
		}

		writeJSON(w, http.StatusCreated, map[string]any{"success": true})
	}
}

func handleListConversations(msgSvc *service.MessagingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convs, err := msgSvc.ListConversations(r.Context(), user.ID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if convs == nil {
			convs = []*domain.ConversationSummary{}
		}
		writeJSON(w, http.StatusOK, convs)
	}
}

func handleMarkConversationRead(msgSvc *service.MessagingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req markReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := msgSvc.MarkRead(r.Context(), user.ID, req.ConversationID); err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleGetThread(msgSvc *service.MessagingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convID, err := pathID(r, "conversationID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		msgs, err := msgSvc.ListMessages(r.Context(), user.ID, convID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// handleUnreadCount degrades to zero on any failure so badge rendering
// never breaks the client.
func handleUnreadCount(msgSvc *service.MessagingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		count, err := msgSvc.UnreadCount(r.Context(), user.ID)
		if err != nil {
			log.Warn("unread count failed", zap.Int64("user_id", user.ID), zap.Error(err))
			count = 0
		}
		writeJSON(w, http.StatusOK, map[string]int{"count": count})
	}
}
