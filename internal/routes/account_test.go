package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/logging"
	"github.com/instantransfer/instantransfer/internal/session"
)

func setupAccountApp(t *testing.T, upstream http.Handler) (*fiber.App, session.Store) {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	if err := store.Put(context.Background(), "dev-1", session.Session{
		AccountID:   "CR1",
		AccessToken: "tok-1",
		LoggedIn:    true,
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	client := gateway.NewClient(srv.URL, 5*time.Second, logging.Discard())
	app := fiber.New()
	app.Use(session.RequireSession(store))
	RegisterAccountRoutes(app, client, store)
	RegisterTransactionRoutes(app, client, store)
	return app, store
}

func accountRequest(path string) *http.Request {
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	req.Header.Set("X-Device-ID", "dev-1")
	return req
}

func TestAccountRejectsSoftFailureFromUpstream(t *testing.T) {
	app, _ := setupAccountApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"account suspended"}`))
	}))

	resp, err := app.Test(accountRequest("/account"), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode < 400 {
		t.Fatalf("upstream failure surfaced with status %d; want >= 400", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if got := string(body); got != "account suspended" {
		t.Fatalf("server message altered: %q", got)
	}
}

func TestTransactionsRejectSoftFailureFromUpstream(t *testing.T) {
	app, _ := setupAccountApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"history unavailable"}`))
	}))

	resp, err := app.Test(accountRequest("/transactions"), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode < 400 {
		t.Fatalf("upstream failure surfaced with status %d; want >= 400", resp.StatusCode)
	}
}

func TestAccountRefreshesCachedBalance(t *testing.T) {
	app, store := setupAccountApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"user":{"balance":250,"currency":"USD"}}`))
	}))

	resp, err := app.Test(accountRequest("/account"), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}

	var body struct {
		User gateway.Profile `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.User.Balance != 250 {
		t.Fatalf("unexpected balance %v", body.User.Balance)
	}

	s, err := store.Get(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if s.Balance != 250 {
		t.Fatalf("cached balance not refreshed: %v", s.Balance)
	}
}
