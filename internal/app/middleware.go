package app

import (
	"net/http"
	"strings"

	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/rest"
	"github.com/fintrack/fintrack/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const UserIdHeader = "X-User-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, _ config.Application) {
	r.Use(userMiddleware(deps.TokenValidator))
}

// userMiddleware puts the calling user into the request context. With a token secret configured
// every request needs a valid bearer token and X-User-Id is ignored. Without one the X-User-Id
// header is trusted; requests without it pass through anonymously and are rejected by the services
// that need a user.
func userMiddleware(validator *user.TokenValidator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			if validator.Enabled() {
				bearer, ok := bearerToken(req)
				if !ok {
					log.Debugf("rejected %s %s without bearer token", req.Method, req.URL.Path)
					w.Header().Set("Content-Type", "application/json")
					rest.WriteError(w, http.StatusUnauthorized, "Authentication required", "")
					return
				}
				u, err := validator.Validate(bearer)
				if err != nil {
					log.Debugf("rejected bearer token: %v", err)
					w.Header().Set("Content-Type", "application/json")
					rest.WriteError(w, http.StatusUnauthorized, "Invalid or expired token", "")
					return
				}
				log.Tracef("user %s resolved from bearer token", u.Id)
				ctx = user.WithUser(ctx, u)
			} else if userId := strings.TrimSpace(req.Header.Get(UserIdHeader)); userId != "" {
				log.Tracef("user %s resolved from %s header", userId, UserIdHeader)
				ctx = user.WithUser(ctx, user.User{Id: userId})
			}

			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func bearerToken(req *http.Request) (string, bool) {
	header := req.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
