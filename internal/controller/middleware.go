package controller

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bingesync/server/pkg/ctxlogger"
	"github.com/bingesync/server/pkg/rest"
)

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
		)
		next.ServeHTTP(w, r)
	})
}

// authMw resolves the bearer token to an identity on every request. Tokens
// are never trusted beyond a single request.
func (c controller) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": rest.Envelope{
				"code":    codeAuthRequired,
				"message": "authentication required",
			}})
			return
		}

		identity, err := c.accountService.ResolveToken(r.Context(), token)
		if err != nil {
			code, message := mapError(err)
			rest.WriteJSON(w, httpStatus(code), rest.Envelope{"error": rest.Envelope{
				"code":    code,
				"message": message,
			}})
			return
		}

		ctx := withIdentityId(r.Context(), identity.Id)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("identity_id", identity.Id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}

	// Browser websocket clients cannot set headers on upgrade.
	return r.URL.Query().Get("token")
}
