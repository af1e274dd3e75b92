package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	accountsdb "fema-catalog/internal/accounts/db"
	accounts "fema-catalog/internal/accounts/service"
	catalogdb "fema-catalog/internal/catalog/db"
	catalogsvc "fema-catalog/internal/catalog/service"
	"fema-catalog/internal/config"
	"fema-catalog/internal/database"
	"fema-catalog/internal/kafka"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/models"
	"fema-catalog/internal/observability"
	"fema-catalog/internal/session"
	"fema-catalog/internal/share"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

func setupTestServer(t *testing.T) *httptest.Server {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateSchema(context.Background(), bunDB))
	t.Cleanup(func() { bunDB.Close() })

	catalogStore := &catalogdb.DB{Bun: bunDB}
	seedCatalog(t, catalogStore)

	log := logger.NewNopLogger()
	metrics := observability.NewMetricsForTesting()
	acct := accounts.NewAccountService(&accountsdb.DB{Bun: bunDB}, catalogStore, kafka.NopPublisher{}, metrics, log)
	acct.BcryptCost = bcrypt.MinCost

	views, err := NewRenderer()
	require.NoError(t, err)

	h := &Handler{
		Catalog:  catalogsvc.NewCatalogService(catalogStore, metrics, log),
		Accounts: acct,
		Sessions: session.NewManager(session.NewTokenStore("0123456789abcdef", time.Hour), "session", time.Hour, false, log),
		QR:       share.NewQRGenerator("http://catalog.test", 128),
		Views:    views,
		Store:    catalogStore,
		Metrics:  metrics,
		Logger:   log,
		Config:   &config.Config{Maps: config.MapsConfig{GoogleAPIKey: "maps-key"}},
	}

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func seedCatalog(t *testing.T, store *catalogdb.DB) {
	declared := time.Date(2018, time.November, 8, 0, 0, 0, 0, time.UTC)
	events := []models.Event{
		{DeclarationID: "DR", FemaID: 4000, StateID: "CA", Name: "Camp Fire", County: "Butte", DisasterType: "Fire", DeclaredOn: declared},
		{DeclarationID: "DR", FemaID: 4000, StateID: "CA", Name: "Camp Fire", County: "Marin", DisasterType: "Fire", DeclaredOn: declared},
		{DeclarationID: "DR", FemaID: 4000, StateID: "CA", Name: "Camp Fire", County: "Yuba", DisasterType: "Fire", DeclaredOn: declared},
		{DeclarationID: "DR", FemaID: 4100, StateID: "OR", Name: "Willamette Flood", County: "Lane", DisasterType: "Flood", DeclaredOn: declared.AddDate(1, 0, 0)},
	}
	require.NoError(t, store.InsertEvents(context.Background(), events))
}

// newClient keeps cookies between requests and does not follow redirects.
func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func postForm(t *testing.T, c *http.Client, u string, form url.Values) *http.Response {
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func signUpAndLogin(t *testing.T, c *http.Client, base string) {
	resp := postForm(t, c, base+"/registration", url.Values{
		"username": {"ada"},
		"email":    {"ada@example.com"},
		"password": {"analytical-engine"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	resp = postForm(t, c, base+"/login", url.Values{"username": {"ada"}, "password": {"analytical-engine"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/users/"))
}

func TestListEvents_OneRowPerDisaster(t *testing.T) {
	srv := setupTestServer(t)

	resp, body := get(t, newClient(t), srv.URL+"/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "2 disasters")
	assert.Equal(t, 1, strings.Count(body, `<a href="/events/4000">`))
	assert.Contains(t, body, `<a href="/events/4100">`)
}

func TestListEvents_FemaIDJumpsToDetail(t *testing.T) {
	srv := setupTestServer(t)

	resp, _ := get(t, newClient(t), srv.URL+"/events?fema-id=4100")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/events/4100", resp.Header.Get("Location"))
}

func TestListEvents_BadPage(t *testing.T) {
	srv := setupTestServer(t)

	resp, _ := get(t, newClient(t), srv.URL+"/events?page=-2")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestShowEvent(t *testing.T) {
	srv := setupTestServer(t)
	client := newClient(t)

	resp, body := get(t, client, srv.URL+"/events/4000")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Camp Fire")
	assert.Contains(t, body, "3 counties affected")
	assert.Contains(t, body, "http://catalog.test/events/4000")

	resp, _ = get(t, client, srv.URL+"/events/9999")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body = get(t, client, srv.URL+"/")
	assert.Contains(t, body, "This event does not exist")
}

func TestEventQR(t *testing.T) {
	srv := setupTestServer(t)

	resp, body := get(t, newClient(t), srv.URL+"/events/4000/qr.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))
}

func TestSearchResults(t *testing.T) {
	srv := setupTestServer(t)
	client := newClient(t)

	resp, body := get(t, client, srv.URL+"/search/results?state=CA&disaster-type=all&declaration-id=all&year=2018&month=11")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "1 disasters")
	assert.Contains(t, body, "Camp Fire")
	assert.NotContains(t, body, "Willamette Flood")
}

func TestSearchResults_RedirectsBackToForm(t *testing.T) {
	srv := setupTestServer(t)

	cases := map[string]string{
		"no matches":    "/search/results?state=HI",
		"bad month":     "/search/results?month=13",
		"bad year":      "/search/results?year=abc",
		"page past end": "/search/results?state=CA&page=3",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			resp, _ := get(t, newClient(t), srv.URL+path)
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, "/search", resp.Header.Get("Location"))
		})
	}
}

func TestShowSearch(t *testing.T) {
	srv := setupTestServer(t)

	resp, body := get(t, newClient(t), srv.URL+"/search")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<option value="OR">OR</option>`)
	assert.Contains(t, body, "November")
}

func TestRegistration_DuplicateUsername(t *testing.T) {
	srv := setupTestServer(t)
	client := newClient(t)
	signUpAndLogin(t, client, srv.URL)

	resp := postForm(t, newClient(t), srv.URL+"/registration", url.Values{
		"username": {"ada"},
		"email":    {"other@example.com"},
		"password": {"analytical-engine"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/registration", resp.Header.Get("Location"))
}

func TestLogin_BadPassword(t *testing.T) {
	srv := setupTestServer(t)
	client := newClient(t)
	signUpAndLogin(t, client, srv.URL)

	anon := newClient(t)
	resp := postForm(t, anon, srv.URL+"/login", url.Values{"username": {"ada"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := get(t, anon, srv.URL+"/login")
	assert.Contains(t, body, "Invalid username or password")
}

func TestSaveEvent(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := newClient(t).Post(srv.URL+"/save/event/4000", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	client := newClient(t)
	signUpAndLogin(t, client, srv.URL)

	resp, err = client.Post(srv.URL+"/save/event/4000", "", nil)
	require.NoError(t, err)
	var saved models.BookmarkResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.BookmarkResult{EventName: "Camp Fire", FemaID: 4000}, saved)

	resp, err = client.Post(srv.URL+"/save/event/4000", "", nil)
	require.NoError(t, err)
	var conflict map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conflict))
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "You have already saved this event.", conflict["error"])

	resp, err = client.Post(srv.URL+"/save/event/9999", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body := get(t, client, srv.URL+"/")
	assert.Contains(t, body, `<a href="/events/4000">4000 Camp Fire</a>`)

	_, body = get(t, client, srv.URL+"/events")
	assert.Contains(t, body, `data-fema-id="4100"`)
	assert.NotContains(t, body, `data-fema-id="4000"`)
}

func TestUsers_RequireLogin(t *testing.T) {
	srv := setupTestServer(t)

	resp, _ := get(t, newClient(t), srv.URL+"/users")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	client := newClient(t)
	signUpAndLogin(t, client, srv.URL)

	resp, body := get(t, client, srv.URL+"/users")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "ada")

	resp, _ = get(t, client, srv.URL+"/users/999")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))
}

func TestLogout(t *testing.T) {
	srv := setupTestServer(t)
	client := newClient(t)
	signUpAndLogin(t, client, srv.URL)

	resp, _ := get(t, client, srv.URL+"/logout")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = get(t, client, srv.URL+"/users")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestMapPages(t *testing.T) {
	srv := setupTestServer(t)

	for _, path := range []string{"/us-map", "/geolocate", "/places_locate?q=Paradise"} {
		resp, body := get(t, newClient(t), srv.URL+path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, body, "maps-key", path)
	}
}

func TestHealth(t *testing.T) {
	srv := setupTestServer(t)

	resp, body := get(t, newClient(t), srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestPageLinks(t *testing.T) {
	links := pageLinks("/events", func(p int) string { return fmt.Sprintf("page=%d", p) }, 1, 3)
	require.Len(t, links, 3)
	assert.Equal(t, "/events?page=0", links[0].URL)
	assert.True(t, links[1].Current)
	assert.False(t, links[2].Current)
}
