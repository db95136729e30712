package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"datekeeper/internal/handlers"
	"datekeeper/internal/models"
	"datekeeper/internal/services"

	"github.com/gin-gonic/gin"
)

const token = "test-token"

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeAdmin struct {
	stats      models.Stats
	statsErr   error
	broadcasts []string
	adminIDs   []string
	recent     []models.Broadcast
	lastLimit  int
}

func (a *fakeAdmin) Stats(context.Context) (models.Stats, error) {
	return a.stats, a.statsErr
}

func (a *fakeAdmin) Broadcast(_ context.Context, adminID, text string) (services.BroadcastResult, error) {
	if strings.TrimSpace(text) == "" {
		return services.BroadcastResult{}, services.ErrEmptyBroadcast
	}
	a.broadcasts = append(a.broadcasts, text)
	a.adminIDs = append(a.adminIDs, adminID)
	return services.BroadcastResult{ID: "b-1", Total: 3, Success: 2, Failed: 1, FailedUsers: []string{"@c:x"}}, nil
}

func (a *fakeAdmin) RecentBroadcasts(_ context.Context, limit int) ([]models.Broadcast, error) {
	a.lastLimit = limit
	return a.recent, nil
}

func newRouter(admin handlers.AdminAPI, pingErr error, adminToken string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewHandler(admin, fakePinger{err: pingErr}, nil)
	return handlers.NewRouter(handlers.RouterConfig{
		Handler:       h,
		AdminToken:    adminToken,
		RatePerMinute: 600,
		RateBurst:     100,
	})
}

func do(r http.Handler, method, path, body string, authorized bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	if w := do(newRouter(&fakeAdmin{}, nil, token), http.MethodGet, "/health", "", false); w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("healthy: %d %q", w.Code, w.Body.String())
	}
	if w := do(newRouter(&fakeAdmin{}, errors.New("down"), token), http.MethodGet, "/health", "", false); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status = %d, want 503", w.Code)
	}
}

func TestHomeHandler(t *testing.T) {
	w := do(newRouter(&fakeAdmin{}, nil, token), http.MethodGet, "/", "", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "datekeeper") {
		t.Fatalf("home: %d %q", w.Code, w.Body.String())
	}
}

func TestGetStats(t *testing.T) {
	admin := &fakeAdmin{stats: models.Stats{TotalUsers: 4, ActiveUsers: 2, GiftCallsToday: 7, GiftUsersToday: 3, GiftDailyLimit: 5}}
	r := newRouter(admin, nil, token)

	if w := do(r, http.MethodGet, "/admin/stats", "", false); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	w := do(r, http.MethodGet, "/admin/stats", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var got models.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != admin.stats {
		t.Errorf("stats = %+v, want %+v", got, admin.stats)
	}
}

func TestGetStats_Error(t *testing.T) {
	r := newRouter(&fakeAdmin{statsErr: errors.New("boom")}, nil, token)
	if w := do(r, http.MethodGet, "/admin/stats", "", true); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestPostBroadcast(t *testing.T) {
	admin := &fakeAdmin{}
	r := newRouter(admin, nil, token)

	w := do(r, http.MethodPost, "/admin/broadcast", `{"message":"Service update"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res services.BroadcastResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Success != 2 || res.Failed != 1 || res.ID != "b-1" {
		t.Errorf("result = %+v", res)
	}
	if len(admin.broadcasts) != 1 || admin.broadcasts[0] != "Service update" {
		t.Errorf("broadcasts = %v", admin.broadcasts)
	}
	if admin.adminIDs[0] != "api" {
		t.Errorf("admin id = %q, want api", admin.adminIDs[0])
	}
}

func TestPostBroadcast_BadRequest(t *testing.T) {
	admin := &fakeAdmin{}
	r := newRouter(admin, nil, token)

	for _, body := range []string{`{}`, `{"message":"   "}`, `not json`} {
		if w := do(r, http.MethodPost, "/admin/broadcast", body, true); w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
	if len(admin.broadcasts) != 0 {
		t.Errorf("broadcasts sent on bad input: %v", admin.broadcasts)
	}
}

func TestListBroadcasts(t *testing.T) {
	admin := &fakeAdmin{recent: []models.Broadcast{{ID: "b-1", Message: "hi"}}}
	r := newRouter(admin, nil, token)

	w := do(r, http.MethodGet, "/admin/broadcasts?limit=500", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if admin.lastLimit != 100 {
		t.Errorf("limit = %d, want capped at 100", admin.lastLimit)
	}
	if w := do(r, http.MethodGet, "/admin/broadcasts?limit=abc", "", true); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestAdminAPIDisabledWithoutToken(t *testing.T) {
	r := newRouter(&fakeAdmin{}, nil, "")
	if w := do(r, http.MethodGet, "/admin/stats", "", true); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
