package authMiddlware

import (
	"context"
	"log/slog"
	"net/http"

	resp "sync_service/internal/lib/api/response"
	"sync_service/internal/lib/jwt"
	sl "sync_service/internal/lib/logger"

	"github.com/go-chi/render"
)

type contextKey string

const SubjectKey contextKey = "subject"

func New(log *slog.Logger, jwtParser *jwt.JWTParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := jwtParser.ParseToken(r.Header.Get("Authorization"))
			if err != nil {
				log.Warn("rejected unauthorized request", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
