package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sms-campaign/internal/domain/audit"
	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/events"
	"sms-campaign/internal/gateway"
	"sms-campaign/internal/proxy"
	"sms-campaign/internal/redis"
	"sms-campaign/internal/repository"
	"sms-campaign/internal/services"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type memRepo struct {
	rows map[uuid.UUID]sms.Sms
}

func (r *memRepo) List(ctx context.Context, q repository.ListQuery) ([]sms.Sms, int64, error) {
	var out []sms.Sms
	for _, s := range r.rows {
		out = append(out, s)
	}
	total := int64(len(out))
	if q.Offset >= len(out) {
		return nil, total, nil
	}
	return out[q.Offset:], total, nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (sms.Sms, error) {
	s, ok := r.rows[id]
	if !ok {
		return sms.Sms{}, sms_errors.ErrNotFound
	}
	return s, nil
}

func (r *memRepo) Create(ctx context.Context, s *sms.Sms) error {
	s.ID = uuid.New()
	r.rows[s.ID] = *s
	return nil
}

func (r *memRepo) Update(ctx context.Context, s *sms.Sms, unlock bool) error {
	r.rows[s.ID] = *s
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.rows, id)
	return nil
}

func (r *memRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) ([]sms.Sms, error) {
	var out []sms.Sms
	for _, id := range ids {
		if s, ok := r.rows[id]; ok {
			out = append(out, s)
			delete(r.rows, id)
		}
	}
	return out, nil
}

func (r *memRepo) Lock(ctx context.Context, id, holder uuid.UUID, holderName string, ttl time.Duration) error {
	s := r.rows[id]
	if s.IsLockedFor(holder, time.Now(), ttl) {
		return &sms_errors.LockedError{HolderID: *s.CheckedOutBy, HolderName: s.CheckedOutByUser}
	}
	now := time.Now()
	s.CheckedOut, s.CheckedOutBy, s.CheckedOutByUser = &now, &holder, holderName
	r.rows[id] = s
	return nil
}

func (r *memRepo) Unlock(ctx context.Context, id uuid.UUID) error { return nil }

func (r *memRepo) IncrementSentCount(ctx context.Context, id uuid.UUID) error { return nil }

type memStats struct{}

func (memStats) ClickStats(ctx context.Context, smsID uuid.UUID) ([]sms.TrackableLink, error) {
	return nil, nil
}

func (memStats) RecipientStats(ctx context.Context, smsID uuid.UUID, offset, limit int) ([]sms.MessageStat, int64, error) {
	return nil, 0, nil
}

func (memStats) HitsSeries(ctx context.Context, smsID uuid.UUID, from, to time.Time) ([]sms.HitPoint, error) {
	return nil, nil
}

func (memStats) RecordStat(ctx context.Context, stat *sms.MessageStat) error { return nil }

func (memStats) SyncTrackables(ctx context.Context, smsID uuid.UUID, urls []string) error { return nil }

type memAudit struct{}

func (memAudit) Create(ctx context.Context, entry *audit.Log) error { return nil }

func (memAudit) ForObject(ctx context.Context, entityType string, entityID uuid.UUID, since time.Time, limit int) ([]audit.Log, error) {
	return nil, nil
}

type memSession struct {
	list map[string]redis.ListState
}

func (m *memSession) GetListState(ctx context.Context, sid string) (redis.ListState, bool, error) {
	st, ok := m.list[sid]
	return st, ok, nil
}

func (m *memSession) SaveListState(ctx context.Context, sid string, st redis.ListState) error {
	m.list[sid] = st
	return nil
}

func (m *memSession) LoadDraft(ctx context.Context, sid, key string, v any) (bool, error) {
	return false, nil
}

func (m *memSession) SaveDraft(ctx context.Context, sid, key string, v any) error { return nil }

func (m *memSession) ClearDraft(ctx context.Context, sid, key string) error { return nil }

type stubSender struct{}

func (stubSender) Send(ctx context.Context, msg gateway.Message) (gateway.Result, error) {
	return gateway.Result{Success: true}, nil
}

func (stubSender) Configured() bool { return true }

type testEnv struct {
	router  *gin.Engine
	repo    *memRepo
	session *memSession
	caller  proxy.Principal
}

func newTestEnv(t *testing.T, roles ...string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		repo:    &memRepo{rows: map[uuid.UUID]sms.Sms{}},
		session: &memSession{list: map[string]redis.ListState{}},
		caller:  proxy.Principal{ID: uuid.New(), Name: "tester", Roles: roles},
	}
	gate := proxy.NewAccessControl(map[string][]proxy.Capability{
		"admin":  proxy.AllCapabilities(),
		"author": {proxy.Create, proxy.ViewOwn},
	})
	bus := events.NewBus(nil)
	smsService := services.NewSmsService(env.repo, bus, time.Hour, nil)
	h := NewSmsHandler(
		services.NewListService(smsService, gate, env.session, stubSender{}, 10),
		services.NewFormService(smsService, gate, env.session, nil),
		services.NewDeleteService(smsService, gate, env.session),
		services.NewViewService(smsService, gate, env.session, memStats{}, memAudit{}, 10),
		services.NewSendService(smsService, gate, bus, stubSender{}, nil, nil),
	)

	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-Anonymous") == "" {
			ctx := services.WithPrincipalContext(c.Request.Context(), env.caller, "sid-1")
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	h.Register(v1)
	env.router = r
	return env
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seed(owner uuid.UUID, name string) sms.Sms {
	s := sms.New()
	s.ID = uuid.New()
	s.Name = name
	s.Message = "Hello"
	s.CreatedBy = owner
	e.repo.rows[s.ID] = *s
	return *s
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (envelope, map[string]any) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	data := map[string]any{}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	return env, data
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	env := newTestEnv(t, "admin")
	req := httptest.NewRequest(http.MethodGet, "/v1/sms", nil)
	req.Header.Set("X-Test-Anonymous", "1")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListAndForbidden(t *testing.T) {
	env := newTestEnv(t, "admin")
	env.seed(env.caller.ID, "One")

	w := env.do(http.MethodGet, "/v1/sms?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	_, data := decode(t, w)
	if data["total"].(float64) != 1 || data["limit"].(float64) != 5 {
		t.Errorf("data = %v", data)
	}

	denied := newTestEnv(t)
	w = denied.do(http.MethodGet, "/v1/sms", nil)
	res, _ := decode(t, w)
	if w.Code != http.StatusForbidden || res.Code != "FORBIDDEN" {
		t.Errorf("status = %d code = %s", w.Code, res.Code)
	}
}

func TestListRedirectsPastLastPage(t *testing.T) {
	env := newTestEnv(t, "admin")
	env.seed(env.caller.ID, "Only")

	w := env.do(http.MethodGet, "/v1/sms?page=4", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/v1/sms?page=1" {
		t.Errorf("location = %s", loc)
	}
}

func TestCreateFlow(t *testing.T) {
	env := newTestEnv(t, "author")

	w := env.do(http.MethodPost, "/v1/sms", map[string]any{
		"name": "Launch", "message": "We are live", "sms_type": "template", "language": "en", "action": "save",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	_, data := decode(t, w)
	if data["state"] != string(services.StateSaved) {
		t.Errorf("state = %v", data["state"])
	}
	redirect := data["redirect"].(map[string]any)
	if !strings.HasPrefix(redirect["url"].(string), "/v1/sms/") {
		t.Errorf("redirect = %v", redirect)
	}

	w = env.do(http.MethodPost, "/v1/sms", map[string]any{"name": "", "action": "save"})
	_, data = decode(t, w)
	if w.Code != http.StatusOK || data["state"] != string(services.StateEditing) || data["errors"] == nil {
		t.Errorf("status = %d data = %v", w.Code, data)
	}

	w = env.do(http.MethodPost, "/v1/sms", map[string]any{"name": "x", "action": "publish"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d", w.Code)
	}
}

func TestEditLockedReturns423(t *testing.T) {
	env := newTestEnv(t, "admin")
	row := env.seed(env.caller.ID, "Busy")
	other := uuid.New()
	now := time.Now()
	row.CheckedOut, row.CheckedOutBy, row.CheckedOutByUser = &now, &other, "someone"
	env.repo.rows[row.ID] = row

	w := env.do(http.MethodGet, "/v1/sms/"+row.ID.String()+"/edit", nil)
	if w.Code != http.StatusLocked {
		t.Fatalf("status = %d", w.Code)
	}
	_, data := decode(t, w)
	flashes := data["flashes"].([]any)
	if len(flashes) != 1 || !strings.Contains(flashes[0].(map[string]any)["message"].(string), "someone") {
		t.Errorf("flashes = %v", flashes)
	}
}

func TestPreviewHiddenIs404(t *testing.T) {
	env := newTestEnv(t, "author")
	row := env.seed(uuid.New(), "Secret")

	w := env.do(http.MethodGet, "/v1/sms/"+row.ID.String()+"/preview", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	w = env.do(http.MethodGet, "/v1/sms/not-a-uuid/preview", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("bad id status = %d", w.Code)
	}
}

func TestBatchDeleteFromQuery(t *testing.T) {
	env := newTestEnv(t, "admin")
	a := env.seed(env.caller.ID, "A")
	b := env.seed(env.caller.ID, "B")

	ids, _ := json.Marshal([]string{a.ID.String(), b.ID.String()})
	w := env.do(http.MethodPost, "/v1/sms/batch-delete?ids="+url.QueryEscape(string(ids)), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if len(env.repo.rows) != 0 {
		t.Errorf("rows left = %d", len(env.repo.rows))
	}

	w = env.do(http.MethodPost, "/v1/sms/batch-delete", map[string]any{"ids": []string{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty ids status = %d", w.Code)
	}
}

func TestSendExample(t *testing.T) {
	env := newTestEnv(t, "admin")
	row := env.seed(env.caller.ID, "Promo")

	w := env.do(http.MethodPost, "/v1/sms/"+row.ID.String()+"/send-example", map[string]string{"number": "+15551234567"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	_, data := decode(t, w)
	if data["close_modal"] != true {
		t.Errorf("data = %v", data)
	}
}
