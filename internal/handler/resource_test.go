package handler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/auth"
	"github.com/sakif/aisolutions-cms/internal/handler"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/repository/sqlite"
	"github.com/sakif/aisolutions-cms/internal/service"
)

const adminToken = "admin-token"

// stubVerifier accepts exactly one token.
type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*model.Identity, error) {
	if token == adminToken {
		return testAdmin.Identity(), nil
	}
	return nil, apperror.Unauthorized(auth.ErrInvalidOrExpired)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAPI wires real services over a temp-dir database behind a chi
// router, mounted the same way the server mounts them.
func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	db := sqlite.New(sqlite.Options{DSN: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, db.Connect(context.Background()))
	t.Cleanup(func() { db.Disconnect() })

	logger := quietLogger()
	articles := service.NewArticleService(
		sqlite.NewCollection[model.Article](db, sqlite.CollectionSpec{Table: sqlite.TableArticles, Resource: "article", UniqueKey: "slug"}),
		service.ArticleOptions{}, logger)
	contacts := service.NewContactService(
		sqlite.NewCollection[model.Contact](db, sqlite.CollectionSpec{Table: sqlite.TableContacts, Resource: "contact"}),
		logger)
	feedback := service.NewFeedbackService(
		sqlite.NewCollection[model.Feedback](db, sqlite.CollectionSpec{Table: sqlite.TableFeedback, Resource: "feedback"}),
		logger)

	admin := auth.RequireAuth(stubVerifier{}, handler.AuthFailure)
	optional := auth.OptionalAuth(stubVerifier{})

	r := chi.NewRouter()
	r.Route("/api/articles", func(r chi.Router) {
		handler.NewResourceHandler[model.Article](articles).Routes(r, admin, optional, handler.Exposure{PublicRead: true})
	})
	r.Route("/api/contacts", func(r chi.Router) {
		handler.NewResourceHandler[model.Contact](contacts).Routes(r, admin, optional, handler.Exposure{PublicCreate: true})
	})
	r.Route("/api/feedback", func(r chi.Router) {
		handler.NewResourceHandler[model.Feedback](feedback).Routes(r, admin, optional, handler.Exposure{PublicCreate: true, PublicRead: true})
	})
	return r
}

// call sends one request; asAdmin adds the bearer token.
func call(t *testing.T, h http.Handler, method, target, body string, asAdmin bool) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if asAdmin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeInto[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type articlePage struct {
	Items []model.Article `json:"items"`
	Total int             `json:"total"`
}

func TestResourceHandler_ArticleLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rr := call(t, api, http.MethodPost, "/api/articles/create",
		`{"title":"Scaling LLM Agents","content":"# Intro\n\nAgents need **tools**."}`, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "anonymous create")

	rr = call(t, api, http.MethodPost, "/api/articles/create",
		`{"title":"Scaling LLM Agents","content":"# Intro\n\nAgents need **tools**."}`, true)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeInto[model.Article](t, rr)
	assert.Equal(t, "scaling-llm-agents", created.Slug)
	assert.Equal(t, model.ArticleDraft, created.Status)
	assert.Contains(t, created.ContentHTML, "<strong>tools</strong>")
	assert.Equal(t, 1, created.ReadTimeMinutes)

	// drafts are hidden from visitors
	page := decodeInto[articlePage](t, call(t, api, http.MethodGet, "/api/articles/", "", false))
	assert.Equal(t, 0, page.Total)
	page = decodeInto[articlePage](t, call(t, api, http.MethodGet, "/api/articles/", "", true))
	assert.Equal(t, 1, page.Total)
	rr = call(t, api, http.MethodGet, "/api/articles/"+created.ID, "", false)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = call(t, api, http.MethodPatch, "/api/articles/"+created.ID, `{"status":"published"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "anonymous update")

	rr = call(t, api, http.MethodPatch, "/api/articles/"+created.ID, `{"status":"published","wordCount":9999}`, true)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	published := decodeInto[model.Article](t, rr)
	assert.NotNil(t, published.PublishedAt)
	assert.Equal(t, created.WordCount, published.WordCount, "wordCount is derived")

	rr = call(t, api, http.MethodGet, "/api/articles/slug/scaling-llm-agents", "", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decodeInto[model.Article](t, rr).ID)

	rr = call(t, api, http.MethodGet, "/api/articles/search?q=llm", "", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeInto[articlePage](t, rr).Total)

	rr = call(t, api, http.MethodDelete, "/api/articles/"+created.ID, "", true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"article deleted","id":"`+created.ID+`"}`, rr.Body.String())

	rr = call(t, api, http.MethodGet, "/api/articles/"+created.ID, "", true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResourceHandler_DuplicateSlug(t *testing.T) {
	api := newTestAPI(t)

	body := `{"title":"Vector Search 101","slug":"vector-search","content":"text"}`
	require.Equal(t, http.StatusCreated, call(t, api, http.MethodPost, "/api/articles/create", body, true).Code)

	rr := call(t, api, http.MethodPost, "/api/articles/create", body, true)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestResourceHandler_ContactsArePrivate(t *testing.T) {
	api := newTestAPI(t)

	rr := call(t, api, http.MethodPost, "/api/contacts/create",
		`{"name":"Ada Lovelace","email":"Ada@Example.com","message":"We would like a chatbot for support.","status":"closed","notes":"vip"}`, false)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	c := decodeInto[model.Contact](t, rr)
	assert.Equal(t, model.ContactNew, c.Status, "visitors cannot pick a status")
	assert.Empty(t, c.Notes)
	assert.Equal(t, "ada@example.com", c.Email)

	assert.Equal(t, http.StatusUnauthorized, call(t, api, http.MethodGet, "/api/contacts/", "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, api, http.MethodGet, "/api/contacts/"+c.ID, "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, api, http.MethodGet, "/api/contacts/stats", "", false).Code)

	rr = call(t, api, http.MethodGet, "/api/contacts/?status=new", "", true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":1`)

	rr = call(t, api, http.MethodGet, "/api/contacts/stats", "", true)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeInto[service.Stats](t, rr)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.By[model.ContactNew])
}

func TestResourceHandler_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name      string
		method    string
		target    string
		body      string
		wantField string
	}{
		{"short message", http.MethodPost, "/api/contacts/create", `{"name":"Ada","email":"ada@example.com","message":"hi"}`, "message"},
		{"bad email", http.MethodPost, "/api/contacts/create", `{"name":"Ada","email":"nope","message":"long enough message"}`, "email"},
		{"unknown filter", http.MethodGet, "/api/contacts/?colour=red", "", "colour"},
		{"bad bool filter", http.MethodGet, "/api/feedback/?approved=maybe", "", "approved"},
		{"bad int filter", http.MethodGet, "/api/feedback/?rating=five", "", "rating"},
		{"bad order", http.MethodGet, "/api/articles/?sort=title&order=sideways", "", "order"},
		{"bad limit", http.MethodGet, "/api/articles/?limit=ten", "", "limit"},
		{"unsortable field", http.MethodGet, "/api/articles/?sort=-content", "", "sort"},
		{"empty search", http.MethodGet, "/api/articles/search?q=", "", "q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := call(t, api, tt.method, tt.target, tt.body, true)

			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			body := decodeError(t, rr)
			assert.Equal(t, "validation_error", body.Error)
			assert.Contains(t, body.Fields, tt.wantField)
		})
	}
}

func TestResourceHandler_FeedbackApproval(t *testing.T) {
	api := newTestAPI(t)

	rr := call(t, api, http.MethodPost, "/api/feedback/create",
		`{"name":"Grace Hopper","email":"grace@example.com","rating":5,"message":"Outstanding delivery.","approved":true}`, false)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	fb := decodeInto[model.Feedback](t, rr)
	assert.False(t, fb.Approved)

	rr = call(t, api, http.MethodGet, "/api/feedback/", "", false)
	assert.Contains(t, rr.Body.String(), `"total":0`)

	rr = call(t, api, http.MethodPut, "/api/feedback/"+fb.ID, `{"approved":true}`, true)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(t, api, http.MethodGet, "/api/feedback/?rating=5", "", false)
	assert.Contains(t, rr.Body.String(), `"total":1`)

	rr = call(t, api, http.MethodGet, "/api/feedback/recent?limit=3", "", false)
	require.Equal(t, http.StatusOK, rr.Code)
	recent := decodeInto[struct {
		Items []model.Feedback `json:"items"`
	}](t, rr)
	require.Len(t, recent.Items, 1)
	assert.Equal(t, fb.ID, recent.Items[0].ID)
}

func TestResourceHandler_UpdateBody(t *testing.T) {
	api := newTestAPI(t)

	rr := call(t, api, http.MethodPost, "/api/articles/create", `{"title":"Prompt Patterns","content":"text"}`, true)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeInto[model.Article](t, rr).ID

	assert.Equal(t, http.StatusBadRequest, call(t, api, http.MethodPut, "/api/articles/"+id, `[1,2]`, true).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, api, http.MethodPut, "/api/articles/"+id, ``, true).Code)
	assert.Equal(t, http.StatusNotFound, call(t, api, http.MethodPut, "/api/articles/missing", `{"title":"Prompt Patterns 2"}`, true).Code)
}
