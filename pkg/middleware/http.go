package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/fekuna/artista-service/pkg/response"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

type ctxKey int

const languageKey ctxKey = 0

// Authenticate resolves a bearer token into a context carrying the caller's identity.
type Authenticate func(ctx context.Context, token string) (context.Context, error)

// RequestLogger logs one line per request with status and latency.
func RequestLogger(log logger.ZapLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Error("HTTP request", fields...)
				return
			}
			log.Info("HTTP request", fields...)
		})
	}
}

// Language stores the best Accept-Language match among supported in the request context.
// The first supported language is the default.
func Language(supported []string) func(http.Handler) http.Handler {
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tags = append(tags, language.Make(s))
	}
	matcher := language.NewMatcher(tags)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := ""
			if len(tags) > 0 {
				accept, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
				_, idx, _ := matcher.Match(accept...)
				lang = supported[idx]
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), languageKey, lang)))
		})
	}
}

// LanguageFrom returns the language chosen by Language, or "".
func LanguageFrom(ctx context.Context) string {
	lang, _ := ctx.Value(languageKey).(string)
	return lang
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(authn Authenticate, log logger.ZapLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				response.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			ctx, err := authn(r.Context(), token)
			if err != nil {
				log.Debug("Rejected bearer token", zap.Error(err))
				response.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

