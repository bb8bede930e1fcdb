package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	HeaderCorrelationID = "X-Correlation-Id"
	HeaderCausationID   = "X-Causation-Id"
)

type ctxKey string

const (
	ctxCorrelationID ctxKey = "correlation_id"
	ctxCausationID   ctxKey = "causation_id"
	ctxUserID        ctxKey = "user_id"
)

// CorrelationID propagates X-Correlation-Id, generating one when the caller
// did not send it, and carries X-Causation-Id through as-is.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(HeaderCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, cid)

		ctx := context.WithValue(r.Context(), ctxCorrelationID, cid)
		if causation := r.Header.Get(HeaderCausationID); causation != "" {
			ctx = context.WithValue(ctx, ctxCausationID, causation)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetCorrelationID(ctx context.Context) string {
	return stringValue(ctx, ctxCorrelationID)
}

func GetCausationID(ctx context.Context) string {
	return stringValue(ctx, ctxCausationID)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
