package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	"github.com/yungbote/pinegate-backend/internal/data/repos/village"
)

func usersJSON(n int) string {
	out := `{"users":[`
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"id":"u%d"}`, i)
	}
	return out + `]}`
}

func TestGoTrueCounterPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/users" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer svc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1, 2:
			_, _ = w.Write([]byte(usersJSON(2)))
		default:
			_, _ = w.Write([]byte(usersJSON(1)))
		}
	}))
	defer srv.Close()

	c := NewGoTrueCounter(testutil.Logger(t), Config{AdminURL: srv.URL, ServiceKey: "svc", PerPage: 2})
	n, err := c.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 users, got %d", n)
	}
}

func TestGoTrueCounterRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(usersJSON(3)))
	}))
	defer srv.Close()

	c := NewGoTrueCounter(testutil.Logger(t), Config{AdminURL: srv.URL, ServiceKey: "svc", PerPage: 10, MaxRetries: 2})
	n, err := c.CountUsers(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("CountUsers: n=%d err=%v", n, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestGoTrueCounterUnauthorizedIsFinal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewGoTrueCounter(testutil.Logger(t), Config{AdminURL: srv.URL, ServiceKey: "svc", MaxRetries: 3})
	if _, err := c.CountUsers(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected no retries, got %d calls", calls)
	}
}

func TestNewFallsBackToCharacters(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	testutil.SeedCharacter(t, db, "a", 1)
	testutil.SeedCharacter(t, db, "b", 4)

	c := New(log, Config{}, village.NewCharacterRepo(db, log))
	if _, ok := c.(*CharacterCounter); !ok {
		t.Fatalf("expected CharacterCounter, got %T", c)
	}
	n, err := c.CountUsers(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("CountUsers: n=%d err=%v", n, err)
	}
}
