package ws

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"marketplace_go/internal/domain"
	"marketplace_go/internal/security"
	"marketplace_go/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or Sec-WebSocket-Protocol), then dispatches events:
//   - message   -> create & push to both participants
//   - mark_read -> mark all unread + notify the sender's other devices
//   - typing    -> forward typing indicator to the other participant
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	msgSvc *service.MessagingService,
	allowedOrigins []string,
	log *zap.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := users.GetByUsername(ctx, sub)
		if err != nil || user == nil || !user.IsActive {
			http.Error(w, "user not found or inactive", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hub.Register(user.ID, conn)
		defer hub.Unregister(user.ID, conn)

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			msgType, _ := payload["type"].(string)
			switch msgType {

			case "message":
				convIDf, _ := payload["conversation_id"].(float64)
				body, _ := payload["message"].(string)
				if convIDf == 0 {
					sendError(conn, "message requires conversation_id and non-empty message")
					continue
				}
				convID := int64(convIDf)
				msg, err := msgSvc.SendMessage(ctx, user.ID, convID, body)
				if err != nil {
					log.Warn("ws send message failed", zap.Int64("user_id", user.ID), zap.Error(err))
					sendError(conn, "failed to send message")
					continue
				}
				msg.SenderName = user.Username
				conv, err := msgSvc.GetConversation(ctx, user.ID, convID)
				if err != nil {
					continue
				}
				hub.BroadcastToUsers([]int64{conv.ClientID, conv.ProviderID}, Event{
					Type:    "message",
					Payload: msg,
				})

			case "mark_read":
				convIDf, _ := payload["conversation_id"].(float64)
				if convIDf == 0 {
					continue
				}
				convID := int64(convIDf)
				if err := msgSvc.MarkRead(ctx, user.ID, convID); err != nil {
					log.Warn("ws mark_read failed", zap.Int64("user_id", user.ID), zap.Error(err))
					sendError(conn, "failed to mark messages as read")
					continue
				}
				conv, err := msgSvc.GetConversation(ctx, user.ID, convID)
				if err != nil {
					continue
				}
				hub.BroadcastToUsers([]int64{conv.ClientID, conv.ProviderID}, Event{
					Type: "messages_read",
					Payload: map[string]any{
						"conversation_id": convID,
						"user_id":         user.ID,
					},
				})

			case "typing":
				convIDf, _ := payload["conversation_id"].(float64)
				if convIDf == 0 {
					continue
				}
				convID := int64(convIDf)
				conv, err := msgSvc.GetConversation(ctx, user.ID, convID)
				if err != nil {
					sendError(conn, "not allowed for this conversation")
					continue
				}
				hub.SendToUser(conv.OtherParticipant(user.ID), Event{
					Type: "typing",
					Payload: map[string]any{
						"conversation_id": convID,
						"user_id":         user.ID,
						"username":        user.Username,
					},
				})

			default:
				log.Debug("ws unknown event type", zap.String("type", msgType), zap.Int64("user_id", user.ID))
			}
		}
	}
}

func sendError(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(Event{
		Type:    "error",
		Payload: map[string]string{"message": msg},
	})
}
