package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"sms-campaign/internal/domain/audit"
	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/events"
	"sms-campaign/internal/gateway"
	"sms-campaign/internal/proxy"
	"sms-campaign/internal/redis"
	"sms-campaign/internal/repository"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/google/uuid"
)

type fakeSmsRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]sms.Sms
	updates   int
	deletes   int
	lockCalls int
}

func newFakeSmsRepo(rows ...sms.Sms) *fakeSmsRepo {
	r := &fakeSmsRepo{rows: map[uuid.UUID]sms.Sms{}}
	for _, s := range rows {
		r.rows[s.ID] = s
	}
	return r
}

func (r *fakeSmsRepo) List(ctx context.Context, q repository.ListQuery) ([]sms.Sms, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []sms.Sms
	for _, s := range r.rows {
		if !matchesForce(s, q.Filter.Force) {
			continue
		}
		if q.Filter.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(q.Filter.Search)) {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func matchesForce(s sms.Sms, conds []repository.Condition) bool {
	for _, c := range conds {
		if c.Column == "created_by" && c.Operator == "eq" && s.CreatedBy != c.Value.(uuid.UUID) {
			return false
		}
	}
	return true
}

func (r *fakeSmsRepo) GetByID(ctx context.Context, id uuid.UUID) (sms.Sms, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return sms.Sms{}, sms_errors.ErrNotFound
	}
	return s, nil
}

func (r *fakeSmsRepo) Create(ctx context.Context, s *sms.Sms) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	r.rows[s.ID] = *s
	return nil
}

func (r *fakeSmsRepo) Update(ctx context.Context, s *sms.Sms, unlock bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[s.ID]
	if !ok {
		return sms_errors.ErrNotFound
	}
	r.updates++
	next := *s
	next.CreatedBy = cur.CreatedBy
	next.CreatedByUser = cur.CreatedByUser
	if unlock {
		next.CheckedOut, next.CheckedOutBy, next.CheckedOutByUser = nil, nil, ""
		s.CheckedOut, s.CheckedOutBy, s.CheckedOutByUser = nil, nil, ""
	} else {
		next.CheckedOut, next.CheckedOutBy, next.CheckedOutByUser = cur.CheckedOut, cur.CheckedOutBy, cur.CheckedOutByUser
	}
	r.rows[s.ID] = next
	return nil
}

func (r *fakeSmsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return sms_errors.ErrNotFound
	}
	r.deletes++
	delete(r.rows, id)
	return nil
}

func (r *fakeSmsRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) ([]sms.Sms, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	var out []sms.Sms
	for _, id := range ids {
		if s, ok := r.rows[id]; ok {
			out = append(out, s)
			delete(r.rows, id)
		}
	}
	return out, nil
}

func (r *fakeSmsRepo) Lock(ctx context.Context, id, holder uuid.UUID, holderName string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockCalls++
	s, ok := r.rows[id]
	if !ok {
		return sms_errors.ErrNotFound
	}
	if s.IsLockedFor(holder, time.Now(), ttl) {
		return &sms_errors.LockedError{HolderID: *s.CheckedOutBy, HolderName: s.CheckedOutByUser}
	}
	now := time.Now()
	s.CheckedOut = &now
	s.CheckedOutBy = &holder
	s.CheckedOutByUser = holderName
	r.rows[id] = s
	return nil
}

func (r *fakeSmsRepo) Unlock(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return sms_errors.ErrNotFound
	}
	s.CheckedOut, s.CheckedOutBy, s.CheckedOutByUser = nil, nil, ""
	r.rows[id] = s
	return nil
}

func (r *fakeSmsRepo) IncrementSentCount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return sms_errors.ErrNotFound
	}
	s.SentCount++
	r.rows[id] = s
	return nil
}

func (r *fakeSmsRepo) get(id uuid.UUID) (sms.Sms, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	return s, ok
}

type fakeStatsRepo struct {
	mu         sync.Mutex
	stats      []sms.MessageStat
	trackables map[uuid.UUID][]string
	clicks     []sms.TrackableLink
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{trackables: map[uuid.UUID][]string{}}
}

func (r *fakeStatsRepo) ClickStats(ctx context.Context, smsID uuid.UUID) ([]sms.TrackableLink, error) {
	return r.clicks, nil
}

func (r *fakeStatsRepo) RecipientStats(ctx context.Context, smsID uuid.UUID, offset, limit int) ([]sms.MessageStat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []sms.MessageStat
	for _, st := range r.stats {
		if st.SmsID == smsID {
			matched = append(matched, st)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeStatsRepo) HitsSeries(ctx context.Context, smsID uuid.UUID, from, to time.Time) ([]sms.HitPoint, error) {
	return []sms.HitPoint{{Date: from, Count: 0}}, nil
}

func (r *fakeStatsRepo) RecordStat(ctx context.Context, stat *sms.MessageStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, *stat)
	return nil
}

func (r *fakeStatsRepo) SyncTrackables(ctx context.Context, smsID uuid.UUID, urls []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackables[smsID] = append(r.trackables[smsID], urls...)
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []audit.Log
	since   time.Time
}

func (r *fakeAuditRepo) Create(ctx context.Context, entry *audit.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) ForObject(ctx context.Context, entityType string, entityID uuid.UUID, since time.Time, limit int) ([]audit.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.since = since
	var out []audit.Log
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeSessionStore struct {
	mu     sync.Mutex
	lists  map[string]redis.ListState
	drafts map[string][]byte
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{lists: map[string]redis.ListState{}, drafts: map[string][]byte{}}
}

func (s *fakeSessionStore) GetListState(ctx context.Context, sessionID string) (redis.ListState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lists[sessionID]
	return st, ok, nil
}

func (s *fakeSessionStore) SaveListState(ctx context.Context, sessionID string, st redis.ListState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[sessionID] = st
	return nil
}

func (s *fakeSessionStore) LoadDraft(ctx context.Context, sessionID, entityKey string, v any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.drafts[sessionID+"/"+entityKey]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (s *fakeSessionStore) SaveDraft(ctx context.Context, sessionID, entityKey string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[sessionID+"/"+entityKey] = raw
	return nil
}

func (s *fakeSessionStore) ClearDraft(ctx context.Context, sessionID, entityKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID+"/"+entityKey)
	return nil
}

type fakeSender struct {
	mu         sync.Mutex
	result     gateway.Result
	err        error
	configured bool
	sent       []gateway.Message
}

func (f *fakeSender) Send(ctx context.Context, msg gateway.Message) (gateway.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.result, f.err
}

func (f *fakeSender) Configured() bool { return f.configured }

type fakeLimiter struct {
	allowed bool
	calls   int
}

func (f *fakeLimiter) AllowExample(ctx context.Context, userID string) (*redis.RateLimitResult, error) {
	f.calls++
	return &redis.RateLimitResult{Allowed: f.allowed, Limit: 5}, nil
}

// fixture wires every service against in-memory fakes.
type fixture struct {
	repo     *fakeSmsRepo
	stats    *fakeStatsRepo
	audit    *fakeAuditRepo
	store    *fakeSessionStore
	sender   *fakeSender
	limiter  *fakeLimiter
	bus      *events.Bus
	gate     *proxy.AccessControl
	sms      *SmsService
	list     *ListService
	form     *FormService
	del      *DeleteService
	view     *ViewService
	send     *SendService
	campaign *CampaignService
}

const testSession = "sess-1"

func newFixture(rows ...sms.Sms) *fixture {
	f := &fixture{
		repo:    newFakeSmsRepo(rows...),
		stats:   newFakeStatsRepo(),
		audit:   &fakeAuditRepo{},
		store:   newFakeSessionStore(),
		sender:  &fakeSender{configured: true, result: gateway.Result{Success: true, MessageID: "m-1"}},
		limiter: &fakeLimiter{allowed: true},
		bus:     events.NewBus(nil),
	}
	f.gate = proxy.NewAccessControl(map[string][]proxy.Capability{
		"admin":   proxy.AllCapabilities(),
		"author":  {proxy.Create, proxy.ViewOwn},
		"editor":  {proxy.ViewOwn, proxy.EditOwn, proxy.DeleteOwn, proxy.Create},
		"viewer":  {proxy.ViewOwn, proxy.ViewOther},
		"nothing": {},
	})
	f.sms = NewSmsService(f.repo, f.bus, time.Hour, nil)
	f.list = NewListService(f.sms, f.gate, f.store, f.sender, 10)
	f.form = NewFormService(f.sms, f.gate, f.store, nil)
	f.del = NewDeleteService(f.sms, f.gate, f.store)
	f.view = NewViewService(f.sms, f.gate, f.store, f.stats, f.audit, 10)
	f.send = NewSendService(f.sms, f.gate, f.bus, f.sender, f.limiter, nil)
	f.campaign = NewCampaignService(f.sms, f.stats, f.bus, f.sender, nil)
	return f
}

func principal(name string, roles ...string) proxy.Principal {
	return proxy.Principal{ID: uuid.New(), Name: name, Roles: roles}
}

func ownedSms(owner proxy.Principal, name string) sms.Sms {
	s := sms.New()
	s.ID = uuid.New()
	s.Name = name
	s.Message = "Hello from " + name
	s.CreatedBy = owner.ID
	s.CreatedByUser = owner.Name
	s.CreatedAt = time.Now().Add(-time.Hour)
	return *s
}

func validForm(name string) SmsForm {
	return SmsForm{Name: name, Message: "Sale ends today", SmsType: "template", Language: "en"}
}

func intPtr(v int) *int { return &v }

func hasFlash(flashes []Flash, key string) bool {
	for _, f := range flashes {
		if f.Key == key {
			return true
		}
	}
	return false
}
