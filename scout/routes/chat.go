// scout/routes/chat.go
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"scout/scout/config"
	"scout/scout/controllers"
	"scout/scout/middlewares"
	"scout/scout/services/ratelimit"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"
)

var errUnauthorized = errors.New("unauthorized")

// errorFrame builds a websocket error payload; the message goes through
// the JSON encoder so quotes and control characters stay valid.
func errorFrame(msg string) []byte {
	frame, _ := json.Marshal(map[string]string{"error": msg})
	return frame
}

// generic wrapper to reduce boilerplate
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(res)
	}
}

func ChatRoutes(ctrl *controllers.ChatController, limiter *ratelimit.Limiter, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// POST /research/ : run the research loop, streaming the answer.
		// Only this operation passes the admission gate.
		gr.With(middlewares.RateLimitMiddleware(limiter, cfg)).Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req types.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			userID, ok := middlewares.UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			flusher, ok := w.(http.Flusher)
			if !ok {
				http.Error(w, "streaming unsupported", http.StatusInternalServerError)
				return
			}

			chatID, ch, errCh := ctrl.ResearchStream(r.Context(), userID, req)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Chat-Id", chatID)
			w.WriteHeader(http.StatusOK)
			flusher.Flush()

			for chunk := range ch {
				if _, err := fmt.Fprint(w, chunk); err != nil {
					return
				}
				flusher.Flush()
			}
			if err := <-errCh; err != nil {
				// Headers are gone; the best we can do is end the body
				// with a marked error line.
				fmt.Fprintf(w, "\n[error] %s\n", err.Error())
				flusher.Flush()
			}
		})

		// GET /research/chats : list the user's chats.
		gr.Get("/chats", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserIDFromContext(r.Context())
			if !ok {
				return nil, http.StatusUnauthorized, errUnauthorized
			}
			chats, err := ctrl.ListChats(r.Context(), userID)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return chats, http.StatusOK, nil
		}))

		// GET /research/chat/{chat_id}/messages : full history of one chat.
		gr.Get("/chat/{chat_id}/messages", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserIDFromContext(r.Context())
			if !ok {
				return nil, http.StatusUnauthorized, errUnauthorized
			}
			chatID := chi.URLParam(r, "chat_id")
			msgs, err := ctrl.GetMessages(r.Context(), userID, chatID)
			if err != nil {
				if err.Error() == "chat not found or forbidden" {
					return nil, http.StatusNotFound, err
				}
				return nil, http.StatusInternalServerError, err
			}
			return msgs, http.StatusOK, nil
		}))

		// DELETE /research/chat/{chat_id} : delete one chat.
		gr.Delete("/chat/{chat_id}", func(w http.ResponseWriter, r *http.Request) {
			userID, ok := middlewares.UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			chatID := chi.URLParam(r, "chat_id")
			err := ctrl.DeleteChat(r.Context(), userID, chatID)
			if err != nil {
				if err.Error() == "chat not found or forbidden" {
					http.Error(w, err.Error(), http.StatusNotFound)
				} else {
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	// Websocket variant: the token travels in the first payload because
	// browser websocket clients cannot set an Authorization header.
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "unsupported data")
			return
		}
		var input struct {
			Token       string            `json:"token"`
			ChatRequest types.ChatRequest `json:"chat_request"`
		}
		if err := json.Unmarshal(data, &input); err != nil {
			conn.Write(ctx, websocket.MessageText, errorFrame("invalid json"))
			return
		}

		userID, err := middlewares.VerifyToken(input.Token, cfg)
		if err != nil {
			conn.Write(ctx, websocket.MessageText, errorFrame(err.Error()))
			conn.Close(websocket.StatusPolicyViolation, "unauthorized")
			return
		}

		limitCfg := ratelimit.Config{
			MaxRequests: cfg.RateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
			KeyPrefix:   fmt.Sprintf("%s:user:%d", ratelimit.DefaultKeyPrefix, userID),
			MaxRetries:  cfg.RateLimitMaxRetries,
		}
		result := limiter.CheckLimit(ctx, limitCfg)
		if !result.Allowed {
			conn.Write(ctx, websocket.MessageText, errorFrame("rate limit exceeded"))
			conn.Close(websocket.StatusPolicyViolation, "rate limit exceeded")
			return
		}
		if err := limiter.RecordHit(ctx, limitCfg.Window, limitCfg.KeyPrefix); err != nil {
			logging.ErrorLogger.Error("rate limit hit not counted",
				zap.Int("user_id", userID), zap.Error(err))
		}

		chatID, ch, errCh := ctrl.ResearchStream(ctx, userID, input.ChatRequest)
		frame, _ := json.Marshal(map[string]string{"chat_id": chatID})
		conn.Write(ctx, websocket.MessageText, frame)

		go func() {
			if err := <-errCh; err != nil {
				conn.Write(ctx, websocket.MessageText, errorFrame(err.Error()))
				conn.Close(websocket.StatusInternalError, "stream error")
			}
		}()

		for chunk := range ch {
			if err := conn.Write(ctx, websocket.MessageText, []byte(chunk)); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "")
	})
	return r
}
