// Package router wires the HTTP API: account registration and login,
// link shortening, redirects with visit recording, per-user link management
// and the stats endpoints.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinylink/internal/auth"
	"github.com/patric-chuzhbe/tinylink/internal/authenticator"
	"github.com/patric-chuzhbe/tinylink/internal/gzippedhttp"
	"github.com/patric-chuzhbe/tinylink/internal/ipchecker"
	"github.com/patric-chuzhbe/tinylink/internal/logger"
	"github.com/patric-chuzhbe/tinylink/internal/models"
	"github.com/patric-chuzhbe/tinylink/internal/user"
)

type shortener interface {
	RegisterUser(ctx context.Context, email, password string) (*user.User, error)

	Authenticate(ctx context.Context, email, password string) (*user.User, error)

	ShortenURL(ctx context.Context, urlToShort, userID string) (string, error)

	RecordVisit(ctx context.Context, short, visitorID string) (string, error)

	GetUserURLs(ctx context.Context, userID string) (models.UserUrls, error)

	UpdateURL(ctx context.Context, short, newURL, requesterID string) error

	DeleteURL(ctx context.Context, short, requesterID string) error

	DeleteURLsAsync(ctx context.Context, userID string, shorts models.DeleteURLsRequest)

	GetLinkStats(ctx context.Context, short, requesterID string) (models.LinkStatsResponse, error)

	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)

	Ping(ctx context.Context) error
}

// Router holds the HTTP handlers of the service.
type Router struct {
	service   shortener
	ipChecker *ipchecker.IPChecker
	validate  *validator.Validate
}

// New assembles the chi router with all routes and middleware.
func New(
	service shortener,
	theAuth authenticator.Authenticator,
	ipChecker *ipchecker.IPChecker,
) *chi.Mux {
	myRouter := &Router{
		service:   service,
		ipChecker: ipChecker,
		validate:  validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		theAuth.AuthenticateUser,
	)

	router.With(gzippedhttp.GzipResponse).Group(func(router chi.Router) {
		router.Post(`/api/user/register`, myRouter.sessionIssuingHandler(theAuth, myRouter.registerUser, http.StatusCreated))
		router.Post(`/api/user/login`, myRouter.sessionIssuingHandler(theAuth, myRouter.loginUser, http.StatusOK))
		router.Post(`/api/user/logout`, func(response http.ResponseWriter, request *http.Request) {
			theAuth.ClearSession(response)
			response.WriteHeader(http.StatusOK)
		})

		router.With(theAuth.RequireUser).Post(`/api/shorten`, myRouter.PostApishorten)
		router.With(theAuth.RequireUser).Get(`/api/user/urls`, myRouter.GetApiuserurls)
		router.With(theAuth.RequireUser).Delete(`/api/user/urls`, myRouter.DeleteApiuserurls)
		router.With(theAuth.RequireUser).Put(`/api/urls/{short}`, myRouter.PutApiurls)
		router.With(theAuth.RequireUser).Delete(`/api/urls/{short}`, myRouter.DeleteApiurls)
		router.With(theAuth.RequireUser).Get(`/api/urls/{short}/stats`, myRouter.GetApiurlsstats)

		router.Get(`/api/internal/stats`, myRouter.GetApiinternalstats)
	})

	router.With(theAuth.RequireUser).Post(`/`, myRouter.PostShorten)
	router.With(theAuth.TrackVisitor).Get(`/{short}`, myRouter.GetRedirecttofullurl)
	router.Get(`/ping`, myRouter.GetPing)

	return router
}

type credentialsHandler func(response http.ResponseWriter, request *http.Request) (*user.User, bool)

// sessionIssuingHandler runs a credentials handler and, when it yields a
// user, attaches a fresh session to the response before replying.
func (rtr *Router) sessionIssuingHandler(
	theAuth authenticator.Authenticator,
	handler credentialsHandler,
	successStatus int,
) http.HandlerFunc {
	return func(response http.ResponseWriter, request *http.Request) {
		usr, ok := handler(response, request)
		if !ok {
			return
		}

		if err := theAuth.IssueSession(response, usr.ID); err != nil {
			logger.Log.Debugln("Error calling the `theAuth.IssueSession()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(response, successStatus, models.RegisterResponse{
			ID:    usr.ID,
			Email: usr.Email,
		})
	}
}

func (rtr *Router) registerUser(response http.ResponseWriter, request *http.Request) (*user.User, bool) {
	registerRequest := models.RegisterRequest{}
	if !rtr.decodeAndValidate(response, request, &registerRequest) {
		return nil, false
	}

	usr, err := rtr.service.RegisterUser(request.Context(), registerRequest.Email, registerRequest.Password)
	if errors.Is(err, models.ErrEmailTaken) {
		http.Error(response, err.Error(), http.StatusConflict)
		return nil, false
	}
	if errors.Is(err, models.ErrEmptyField) {
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
		return nil, false
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `rtr.service.RegisterUser()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return nil, false
	}

	return usr, true
}

func (rtr *Router) loginUser(response http.ResponseWriter, request *http.Request) (*user.User, bool) {
	loginRequest := models.LoginRequest{}
	if !rtr.decodeAndValidate(response, request, &loginRequest) {
		return nil, false
	}

	usr, err := rtr.service.Authenticate(request.Context(), loginRequest.Email, loginRequest.Password)
	if err != nil {
		http.Error(response, "invalid email or password", http.StatusUnauthorized)
		return nil, false
	}

	return usr, true
}

// PostApishorten shortens the URL from a JSON request on behalf of the
// authenticated user.
func (rtr *Router) PostApishorten(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())

	shortenRequest := models.ShortenRequest{}
	if !rtr.decodeAndValidate(response, request, &shortenRequest) {
		return
	}

	shortURL, err := rtr.service.ShortenURL(request.Context(), shortenRequest.URL, userID)
	if err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(response, http.StatusCreated, models.ShortenResponse{Result: shortURL})
}

// PostShorten is the text/plain variant: the first URL substring found in
// the request body gets shortened.
func (rtr *Router) PostShorten(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())

	body, err := io.ReadAll(request.Body)
	if err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	shortURL, err := rtr.service.ShortenURL(request.Context(), string(body), userID)
	if err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	response.WriteHeader(http.StatusCreated)

	if _, err := response.Write([]byte(shortURL)); err != nil {
		logger.Log.Debugln("Error writing the response body: ", zap.Error(err))
	}
}

// GetRedirecttofullurl records the visit and redirects to the destination.
func (rtr *Router) GetRedirecttofullurl(response http.ResponseWriter, request *http.Request) {
	short := chi.URLParam(request, "short")
	visitorID, _ := auth.VisitorIDFromContext(request.Context())

	destination, err := rtr.service.RecordVisit(request.Context(), short, visitorID)
	if errors.Is(err, models.ErrLinkNotFound) {
		response.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `rtr.service.RecordVisit()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, destination, http.StatusTemporaryRedirect)
}

// GetApiuserurls lists the links of the authenticated user.
func (rtr *Router) GetApiuserurls(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())

	urls, err := rtr.service.GetUserURLs(request.Context(), userID)
	if err != nil {
		logger.Log.Debugln("Error calling the `rtr.service.GetUserURLs()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(urls) == 0 {
		response.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(response, http.StatusOK, urls)
}

// PutApiurls updates the destination of a link owned by the caller.
func (rtr *Router) PutApiurls(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())
	short := chi.URLParam(request, "short")

	updateRequest := models.UpdateURLRequest{}
	if !rtr.decodeAndValidate(response, request, &updateRequest) {
		return
	}

	err := rtr.service.UpdateURL(request.Context(), short, updateRequest.URL, userID)
	if !rtr.writeLinkOwnershipError(response, err) {
		return
	}

	response.WriteHeader(http.StatusOK)
}

// DeleteApiurls removes a single link owned by the caller.
func (rtr *Router) DeleteApiurls(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())
	short := chi.URLParam(request, "short")

	err := rtr.service.DeleteURL(request.Context(), short, userID)
	if !rtr.writeLinkOwnershipError(response, err) {
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// DeleteApiuserurls enqueues a bulk deletion of the caller's links.
func (rtr *Router) DeleteApiuserurls(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())

	deleteRequest := models.DeleteURLsRequest{}
	if err := json.NewDecoder(request.Body).Decode(&deleteRequest); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	rtr.service.DeleteURLsAsync(request.Context(), userID, deleteRequest)

	response.WriteHeader(http.StatusAccepted)
}

// GetApiurlsstats returns the visit analytics of a link to its owner.
func (rtr *Router) GetApiurlsstats(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())
	short := chi.URLParam(request, "short")

	stats, err := rtr.service.GetLinkStats(request.Context(), short, userID)
	if !rtr.writeLinkOwnershipError(response, err) {
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

// GetApiinternalstats returns service totals to callers from the trusted subnet.
func (rtr *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	if rtr.ipChecker.IsTrustedSubnetEmpty() {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	clientIP, err := rtr.ipChecker.GetClientIP(request)
	if err != nil {
		logger.Log.Debugln("Error calling the `rtr.ipChecker.GetClientIP()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !rtr.ipChecker.Check(clientIP) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	stats, err := rtr.service.GetInternalStats(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `rtr.service.GetInternalStats()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

// GetPing reports the health of the storage layer.
func (rtr *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rtr.service.Ping(request.Context()); err != nil {
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// writeLinkOwnershipError maps the storage's link errors to HTTP statuses.
// It reports whether the caller may proceed with the success path.
func (rtr *Router) writeLinkOwnershipError(response http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true

	case errors.Is(err, models.ErrLinkNotFound):
		response.WriteHeader(http.StatusNotFound)

	case errors.Is(err, models.ErrNotLinkOwner):
		response.WriteHeader(http.StatusForbidden)

	default:
		logger.Log.Debugln("Unexpected link operation error: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
	}

	return false
}

func (rtr *Router) decodeAndValidate(
	response http.ResponseWriter,
	request *http.Request,
	target interface{},
) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		logger.Log.Debugln("Error decoding the request body: ", zap.Error(err))
		http.Error(response, "malformed request body", http.StatusUnprocessableEntity)
		return false
	}

	if err := rtr.validate.Struct(target); err != nil {
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
		return false
	}

	return true
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error encoding the response body: ", zap.Error(err))
	}
}
