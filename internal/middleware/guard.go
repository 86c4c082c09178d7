package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"delivery-portal/internal/authz"
	"delivery-portal/internal/metrics"
)

type contextKey string

const decisionContextKey contextKey = "guard_decision"

// Guard gates page navigations on the token cookie. It only reads the role
// claim; the backend still authorizes every API call.
type Guard struct {
	policy  authz.Policy
	metrics metrics.Recorder
}

func NewGuard(policy authz.Policy, recorder metrics.Recorder) *Guard {
	if recorder == nil {
		recorder = metrics.Noop
	}
	return &Guard{policy: policy, metrics: recorder}
}

func (g *Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if cookie, err := r.Cookie(authz.TokenCookie); err == nil {
			token = cookie.Value
		}

		decision := g.policy.Decide(r.URL.Path, token)
		g.metrics.RecordGuardDecision(string(decision.Reason), decision.Allow)

		if !decision.Allow {
			slog.Info("navigation redirected",
				"path", r.URL.Path,
				"reason", string(decision.Reason),
				"role", string(decision.Role),
				"redirect", decision.Redirect,
			)
			http.Redirect(w, r, decision.Redirect, http.StatusTemporaryRedirect)
			return
		}

		ctx := context.WithValue(r.Context(), decisionContextKey, decision)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DecisionFromContext returns the decision the guard made for this request.
func DecisionFromContext(ctx context.Context) (authz.Decision, bool) {
	decision, ok := ctx.Value(decisionContextKey).(authz.Decision)
	return decision, ok
}
