package txsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	"StockSense/pkg/logger"
)

const payload = `[{"productName":"Widget","transactionType":"sale","date":"2024-01-01","quantity":3,"amount":30}]`

func upstream(t *testing.T, loginStatus, fetchStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("login method = %s", r.Method)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("login carries a query string: %q", r.URL.RawQuery)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if loginStatus != http.StatusOK || body["password"] != "s3cret" {
			w.WriteHeader(loginStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + body["username"]})
	})
	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sort"); got != "-date" {
			t.Errorf("sort = %q", got)
		}
		if strings.Contains(r.URL.RawQuery, "tok-") {
			t.Errorf("token leaked into query: %q", r.URL.RawQuery)
		}
		if fetchStatus != http.StatusOK {
			w.WriteHeader(fetchStatus)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(payload))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(baseURL string) *Client {
	return New(Config{
		BaseURL:          baseURL,
		LoginPath:        "/api/v1/auth/login",
		TransactionsPath: "/api/v1/transactions",
		Sort:             "-date",
		Timeout:          5 * time.Second,
	}, logger.Nop())
}

func TestFetchWithPasswordLogin(t *testing.T) {
	srv := upstream(t, http.StatusOK, http.StatusOK)
	raw, err := newClient(srv.URL).FetchTransactions(context.Background(), NewPasswordLogin("johndoe", "s3cret"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(raw) != payload {
		t.Fatalf("payload = %s", raw)
	}
}

func TestFetchWithBearer(t *testing.T) {
	srv := upstream(t, http.StatusOK, http.StatusOK)
	if _, err := newClient(srv.URL).FetchTransactions(context.Background(), NewBearerToken("tok-svc")); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestFetchErrors(t *testing.T) {
	cases := []struct {
		name         string
		login, fetch int
		cred         func() drepo.Credential
		op           string
		status       int
		unauthorized bool
	}{
		{"bad password", http.StatusBadRequest, http.StatusOK, func() drepo.Credential { return NewPasswordLogin("johndoe", "wrong") }, opLogin, http.StatusBadRequest, true},
		{"login down", http.StatusInternalServerError, http.StatusOK, func() drepo.Credential { return NewPasswordLogin("johndoe", "wrong") }, opLogin, http.StatusInternalServerError, false},
		{"token rejected", http.StatusOK, http.StatusUnauthorized, func() drepo.Credential { return NewBearerToken("tok-x") }, opFetch, http.StatusUnauthorized, true},
		{"fetch down", http.StatusOK, http.StatusBadGateway, func() drepo.Credential { return NewBearerToken("tok-x") }, opFetch, http.StatusBadGateway, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := upstream(t, tc.login, tc.fetch)
			_, err := newClient(srv.URL).FetchTransactions(context.Background(), tc.cred())
			var ce *models.CollaboratorError
			if !errors.As(err, &ce) {
				t.Fatalf("expected CollaboratorError, got %v", err)
			}
			if ce.Op != tc.op || ce.Status != tc.status || ce.Unauthorized() != tc.unauthorized {
				t.Fatalf("got op=%s status=%d unauthorized=%v", ce.Op, ce.Status, ce.Unauthorized())
			}
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := upstream(t, http.StatusOK, http.StatusOK)
	url := srv.URL
	srv.Close()

	_, err := newClient(url).FetchTransactions(context.Background(), NewBearerToken("tok-x"))
	var ce *models.CollaboratorError
	if !errors.As(err, &ce) || ce.Status != 0 || ce.Unauthorized() {
		t.Fatalf("expected transport CollaboratorError, got %v", err)
	}
}

func TestFetchRequiresCredential(t *testing.T) {
	_, err := newClient("http://127.0.0.1:1").FetchTransactions(context.Background(), nil)
	if !errors.Is(err, models.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestCredentialsAreRedacted(t *testing.T) {
	creds := []fmt.Stringer{NewBearerToken("tok-secret"), NewPasswordLogin("johndoe", "s3cret")}
	for _, c := range creds {
		for _, s := range []string{c.String(), fmt.Sprintf("%v", c), fmt.Sprintf("%#v", c), fmt.Sprintf("%+v", c)} {
			if strings.Contains(s, "tok-secret") || strings.Contains(s, "s3cret") {
				t.Fatalf("secret leaked: %s", s)
			}
		}
		b, _ := json.Marshal(c)
		if strings.Contains(string(b), "secret") || strings.Contains(string(b), "s3cret") {
			t.Fatalf("secret leaked in json: %s", b)
		}
	}
}
