// Package auth provides JWT-based session management and visitor
// identification for HTTP requests. Sessions travel in a signed cookie (or
// the Authorization header); visitors are tracked with a separate plain
// cookie so that redirect analytics can attribute repeat visits.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinylink/internal/logger"
	"github.com/patric-chuzhbe/tinylink/internal/user"
)

type userKeeper interface {
	FindUserByID(ctx context.Context, userID string) (*user.User, bool, error)
}

// Auth issues and verifies session tokens and resolves request identities.
type Auth struct {
	db userKeeper

	authCookieName             string
	authCookieSigningSecretKey []byte
	visitorCookieName          string
}

// Claims are the JWT claims carried by a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key holding the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// VisitorIDKey is the context key holding the visitor identifier used for
// visit analytics.
const VisitorIDKey ContextKey = "visitorID"

func New(
	db userKeeper,
	authCookieName string,
	authCookieSigningSecretKey []byte,
	visitorCookieName string,
) *Auth {
	return &Auth{
		db:                         db,
		authCookieName:             authCookieName,
		authCookieSigningSecretKey: authCookieSigningSecretKey,
		visitorCookieName:          visitorCookieName,
	}
}

// IssueSession signs a JWT for the given user and attaches it to the
// response as both the session cookie and the Authorization header.
func (a *Auth) IssueSession(response http.ResponseWriter, userID string) error {
	JWTString, err := a.buildJWTString(&Claims{UserID: userID})
	if err != nil {
		return err
	}

	response.Header().Set("Authorization", JWTString)
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    JWTString,
			Path:     "/",
			HttpOnly: true,
		},
	)

	return nil
}

// ClearSession expires the session cookie.
func (a *Auth) ClearSession(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		},
	)
}

// AuthenticateUser resolves the caller's identity from the Authorization
// header or the session cookie and stores the user ID in the request
// context. A missing or invalid token is not an error - the request simply
// proceeds anonymously.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.getUserIDFromAuthorizationHeaderOrCookie(request)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.getUserIDFromAuthorizationHeaderOrCookie()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		if userID == "" {
			h.ServeHTTP(response, request)
			return
		}

		usr, found, err := a.db.FindUserByID(request.Context(), userID)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.FindUserByID()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !found {
			// Stale token referring to a user this process never saw.
			h.ServeHTTP(response, request)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireUser rejects requests that carry no authenticated identity.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, ok := request.Context().Value(UserIDKey).(string)
		if !ok || userID == "" {
			response.WriteHeader(http.StatusUnauthorized)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// TrackVisitor makes sure every request carries a stable visitor identifier:
// an existing visitor cookie is reused, otherwise a fresh UUID is assigned
// and set as a cookie. The identifier ends up in the request context under
// VisitorIDKey.
func (a *Auth) TrackVisitor(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		visitorID := ""
		cookie, err := request.Cookie(a.visitorCookieName)
		if err == nil && cookie.Value != "" {
			visitorID = cookie.Value
		} else {
			visitorID = uuid.NewString()
			http.SetCookie(
				response,
				&http.Cookie{
					Name:  a.visitorCookieName,
					Value: visitorID,
					Path:  "/",
				},
			)
		}

		ctx := context.WithValue(request.Context(), VisitorIDKey, visitorID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext extracts the authenticated user's ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// VisitorIDFromContext extracts the visitor identifier, if any.
func VisitorIDFromContext(ctx context.Context) (string, bool) {
	visitorID, ok := ctx.Value(VisitorIDKey).(string)
	return visitorID, ok && visitorID != ""
}

func (a *Auth) getTokenStringFromAuthorizationHeaderOrCookie(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString != "" {
		return tokenString
	}
	cookie, err := request.Cookie(a.authCookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

func (a *Auth) getUserIDFromAuthorizationHeaderOrCookie(request *http.Request) (string, error) {
	tokenString := a.getTokenStringFromAuthorizationHeaderOrCookie(request)
	if tokenString == "" {
		return "", nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.authCookieSigningSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", nil
	}

	return claims.UserID, nil
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.authCookieSigningSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
