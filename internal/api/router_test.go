package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okenna/dreamloom-be/internal/api"
	"github.com/okenna/dreamloom-be/internal/auth"
	"github.com/okenna/dreamloom-be/internal/database"
	"github.com/okenna/dreamloom-be/internal/monitoring"
	"github.com/okenna/dreamloom-be/internal/services"
	"github.com/okenna/dreamloom-be/internal/websocket"
)

type fakeLLM struct {
	reply string
}

func (f *fakeLLM) Complete(context.Context, string) (string, error) {
	return f.reply, nil
}

type fakeImages struct {
	url string
}

func (f *fakeImages) Generate(context.Context, string) (string, error) {
	return f.url, nil
}

type fakeStats struct {
	snapshot monitoring.HostStats
}

func (f *fakeStats) Latest() monitoring.HostStats {
	return f.snapshot
}

type fixture struct {
	server *httptest.Server
	db     *sql.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	tokens := auth.NewTokenIssuer("integration-test-secret", 30*time.Minute)
	hub := websocket.NewHub()
	go hub.Run()

	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	dreamService := services.NewDreamService(db,
		&fakeLLM{reply: "a woven first-person narrative"},
		&fakeImages{url: "https://cdn.example.com/dream.png"},
		eventService, hub)

	router := api.NewRouter(tokens, hub, userService, dreamService, eventService,
		&fakeStats{snapshot: monitoring.HostStats{CPUPercent: 12.5, SampledAt: time.Now()}})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &fixture{server: srv, db: db}
}

func (f *fixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeToken(t *testing.T, resp *http.Response) (token, email string) {
	t.Helper()
	var body struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
		Email     string `json:"email"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "bearer", body.TokenType)
	require.NotEmpty(t, body.Token)
	return body.Token, body.Email
}

func creds(email, password string) map[string]string {
	return map[string]string{"email": email, "password": password}
}

func TestSignupLoginConflictScenario(t *testing.T) {
	f := newFixture(t)

	// Signup issues a token bound to the new account.
	resp := f.request(t, http.MethodPost, "/api/v1/auth/signup", "", creds("a@x.com", "pw1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	t1, email := decodeToken(t, resp)
	assert.Equal(t, "a@x.com", email)

	// Login with the same credentials issues a fresh, distinct token.
	time.Sleep(1100 * time.Millisecond) // token iat has second granularity
	resp = f.request(t, http.MethodPost, "/api/v1/auth/login", "", creds("a@x.com", "pw1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t2, _ := decodeToken(t, resp)
	assert.NotEqual(t, t1, t2)

	// Both tokens resolve to the same identity.
	for _, token := range []string{t1, t2} {
		resp = f.request(t, http.MethodGet, "/api/v1/auth/me", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var me struct {
			Email string `json:"email"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
		assert.Equal(t, "a@x.com", me.Email)
	}

	// A second signup for the same email conflicts, even with a new password.
	resp = f.request(t, http.MethodPost, "/api/v1/auth/signup", "", creds("a@x.com", "pw2"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The original password still works, so the first record was untouched.
	resp = f.request(t, http.MethodPost, "/api/v1/auth/login", "", creds("a@x.com", "pw1"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthValidationErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "email without at sign", body: creds("not-an-email", "pw")},
		{name: "empty email", body: creds("", "pw")},
		{name: "empty password", body: creds("a@x.com", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.request(t, http.MethodPost, "/api/v1/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			resp = f.request(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestLoginFailureShapeIsUniform(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/v1/auth/signup", "", creds("a@x.com", "pw1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	unknown := f.request(t, http.MethodPost, "/api/v1/auth/login", "", creds("ghost@x.com", "pw1"))
	wrongPw := f.request(t, http.MethodPost, "/api/v1/auth/login", "", creds("a@x.com", "nope"))

	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, wrongPw.StatusCode)

	unknownBody := make([]byte, 256)
	wrongBody := make([]byte, 256)
	n1, _ := unknown.Body.Read(unknownBody)
	n2, _ := wrongPw.Body.Read(wrongBody)
	assert.Equal(t, string(unknownBody[:n1]), string(wrongBody[:n2]),
		"unknown email and wrong password must be indistinguishable")
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	f := newFixture(t)

	paths := []string{
		"/api/v1/auth/me",
		"/api/v1/dreams",
		"/api/v1/dreams/narrative",
		"/api/v1/digests/latest",
		"/api/v1/events",
		"/api/v1/system/stats",
	}

	for _, path := range paths {
		resp := f.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp = f.request(t, http.MethodGet, path, "not.a.valid.token", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestDreamJournalFlow(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/v1/auth/signup", "", creds("a@x.com", "pw1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := decodeToken(t, resp)

	// No dreams yet: aggregation endpoints report not found, listing is empty.
	resp = f.request(t, http.MethodGet, "/api/v1/dreams/narrative", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.request(t, http.MethodPost, "/api/v1/dreams/image", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/api/v1/dreams", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var empty []json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	assert.Empty(t, empty)

	// Save a dream.
	resp = f.request(t, http.MethodPost, "/api/v1/dreams", token, map[string]string{"text": "i was falling"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved struct {
		Status  string `json:"status"`
		DreamID string `json:"dream_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	assert.Equal(t, "saved", saved.Status)
	assert.NotEmpty(t, saved.DreamID)

	// Blank submissions are rejected before touching the LLM.
	resp = f.request(t, http.MethodPost, "/api/v1/dreams", token, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The listing shows the restyled narrative.
	resp = f.request(t, http.MethodGet, "/api/v1/dreams", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dreams []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dreams))
	require.Len(t, dreams, 1)
	assert.Equal(t, saved.DreamID, dreams[0].ID)
	assert.Equal(t, "a woven first-person narrative", dreams[0].Content)

	// Collective narrative persists a digest.
	resp = f.request(t, http.MethodGet, "/api/v1/dreams/narrative", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var digest struct {
		Narrative  string `json:"narrative"`
		DreamCount int    `json:"dreamCount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&digest))
	assert.Equal(t, "a woven first-person narrative", digest.Narrative)
	assert.Equal(t, 1, digest.DreamCount)

	resp = f.request(t, http.MethodGet, "/api/v1/digests/latest", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Image generation attaches the URL to the latest dream.
	resp = f.request(t, http.MethodPost, "/api/v1/dreams/image", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var image struct {
		ImageURL string `json:"image_url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&image))
	assert.Equal(t, "https://cdn.example.com/dream.png", image.ImageURL)

	var storedURL string
	require.NoError(t, f.db.QueryRow("SELECT image_url FROM dreams WHERE id = ?", saved.DreamID).Scan(&storedURL))
	assert.Equal(t, "https://cdn.example.com/dream.png", storedURL)

	// Activity shows up in the event log.
	resp = f.request(t, http.MethodGet, "/api/v1/events", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "dream.create")
	assert.Contains(t, types, "narrative.generate")
	assert.Contains(t, types, "image.generate")
}

func TestSystemStats(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/v1/auth/signup", "", creds("a@x.com", "pw1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := decodeToken(t, resp)

	resp = f.request(t, http.MethodGet, "/api/v1/system/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		CPUPercent float64 `json:"cpuPercent"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 12.5, stats.CPUPercent)
}
