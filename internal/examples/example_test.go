package examples

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinylink/internal/auth"
	"github.com/patric-chuzhbe/tinylink/internal/config"
	"github.com/patric-chuzhbe/tinylink/internal/db/memstore"
	"github.com/patric-chuzhbe/tinylink/internal/ipchecker"
	"github.com/patric-chuzhbe/tinylink/internal/logger"
	"github.com/patric-chuzhbe/tinylink/internal/models"
	"github.com/patric-chuzhbe/tinylink/internal/passhash"
	"github.com/patric-chuzhbe/tinylink/internal/router"
	"github.com/patric-chuzhbe/tinylink/internal/service"
)

type mockUrlsRemover struct{}

func (m *mockUrlsRemover) EnqueueJob(job *models.URLDeleteJob) {}

func setupTestRouter() *httptest.Server {
	cfg, err := config.New(config.WithDisableFlagsParsing(true))
	if err != nil {
		panic(err)
	}

	db := memstore.New()

	authKey, err := base64.URLEncoding.DecodeString(cfg.AuthCookieSigningSecretKey)
	if err != nil {
		panic(err)
	}

	ipChecker, err := ipchecker.New(cfg.TrustedSubnet)
	if err != nil {
		panic(err)
	}

	s := service.New(
		db,
		passhash.New(bcrypt.MinCost),
		&mockUrlsRemover{},
		cfg.ShortURLBase,
	)

	theRouter := router.New(
		s,
		auth.New(db, cfg.AuthCookieName, authKey, cfg.VisitorCookieName),
		ipChecker,
	)

	if err := logger.Init("error"); err != nil {
		panic(err)
	}

	return httptest.NewServer(theRouter)
}

// registerSession creates an account and returns its session cookie.
func registerSession(serverURL string) *http.Cookie {
	payload := models.RegisterRequest{
		Email:    "visitor@example.com",
		Password: "purple-monkey-dinosaur",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}

	resp, err := http.Post(serverURL+"/api/user/register", "application/json", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "tinylink_session" {
			return cookie
		}
	}

	panic("no session cookie in the register response")
}

func ExampleRouter_GetPing() {
	server := setupTestRouter()
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/ping", nil)
	if err != nil {
		panic(err)
	}

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_PostApishorten() {
	server := setupTestRouter()
	defer server.Close()

	sessionCookie := registerSession(server.URL)

	payload := models.ShortenRequest{URL: "https://example.com"}
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/shorten", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie)

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	re := regexp.MustCompile(`\{\s*"result"\s*:\s*"http://localhost:8080/[0-9A-Za-z]{6}"\s*\}`)

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Body matches:", re.Match(b))

	// Output:
	// Status Code: 201
	// Body matches: true
}

func ExampleRouter_GetRedirecttofullurl() {
	server := setupTestRouter()
	defer server.Close()

	sessionCookie := registerSession(server.URL)

	payload := models.ShortenRequest{URL: "https://example.com/page"}
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/shorten", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie)

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var shortened models.ShortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&shortened); err != nil {
		panic(err)
	}

	// The shortener replies with an absolute URL based on its configured
	// base; the test server listens elsewhere, so only the key is reused.
	shortURL, err := url.Parse(shortened.Result)
	if err != nil {
		panic(err)
	}

	redirectResp, err := client.Get(server.URL + shortURL.Path)
	if err != nil {
		panic(err)
	}
	defer redirectResp.Body.Close()

	fmt.Println("Status Code:", redirectResp.StatusCode)
	fmt.Println("Location:", redirectResp.Header.Get("Location"))

	// Output:
	// Status Code: 307
	// Location: https://example.com/page
}
