package security

import (
	"context"
	"net/http"
	"unicode"

	"github.com/google/uuid"
)

const CorrelationIDHeader = "X-Correlation-ID"

// maxCorrelationIDLen bounds caller-supplied ids; longer ones are replaced.
const maxCorrelationIDLen = 128

type correlationIDKey struct{}

// CorrelationID tags every request with the caller's correlation id, or a
// fresh one, and echoes it in the response header.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := NormalizeCorrelationID(r.Header.Get(CorrelationIDHeader))
		w.Header().Set(CorrelationIDHeader, cid)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), cid)))
	})
}

// NormalizeCorrelationID returns cid when it is a short printable token and a
// new random id otherwise.
func NormalizeCorrelationID(cid string) string {
	if cid == "" || len(cid) > maxCorrelationIDLen {
		return uuid.NewString()
	}
	for _, r := range cid {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return uuid.NewString()
		}
	}
	return cid
}

func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cid)
}

func CorrelationIDFromContext(ctx context.Context) string {
	if v := ctx.Value(correlationIDKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
