package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/esport-core/models"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const callerContextKey contextKey = "caller"

var ErrNoCallerInContext = errors.New("caller not found in request context")

// callerClaims is the token shape issued by the auth service. Captaincy is a
// fact carried by the token, not recomputed here.
type callerClaims struct {
	UserID         int    `json:"user_id"`
	Role           string `json:"role"`
	CaptainTeamIDs []int  `json:"captain_team_ids"`
	jwt.RegisteredClaims
}

// Authenticator resolves a bearer token into a models.Caller and stores it
// in the request context. Handlers pass the Caller explicitly into every
// service call.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := &callerClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.UserID <= 0 {
			http.Error(w, "invalid user_id claim", http.StatusUnauthorized)
			return
		}

		caller := models.Caller{
			UserID:         claims.UserID,
			Role:           models.UserRole(claims.Role),
			CaptainTeamIDs: claims.CaptainTeamIDs,
		}
		ctx := context.WithValue(r.Context(), callerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext extracts the Caller stored by Authenticate.
func CallerFromContext(ctx context.Context) (models.Caller, error) {
	caller, ok := ctx.Value(callerContextKey).(models.Caller)
	if !ok {
		return models.Caller{}, ErrNoCallerInContext
	}
	return caller, nil
}
