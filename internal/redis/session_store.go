package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Session key patterns:
// - sms:session:{sid}:list - list filter/sort/page state, session TTL
// - sms:session:{sid}:draft:{id} - staged form content, session TTL

// ListState is the per-session list view state.
type ListState struct {
	Search     string `json:"search"`
	OrderBy    string `json:"order_by"`
	OrderByDir string `json:"order_by_dir"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	// ContactPages is the contacts page last shown per message id.
	ContactPages map[string]int `json:"contact_pages,omitempty"`
}

// DefaultListState returns the state used on first access.
func DefaultListState(limit int) ListState {
	return ListState{
		OrderBy:    "name",
		OrderByDir: "DESC",
		Page:       1,
		Limit:      limit,
	}
}

// ContactPage returns the contacts page remembered for smsID, or 1.
func (st ListState) ContactPage(smsID string) int {
	if p := st.ContactPages[smsID]; p > 1 {
		return p
	}
	return 1
}

func (st *ListState) SetContactPage(smsID string, page int) {
	if st.ContactPages == nil {
		st.ContactPages = map[string]int{}
	}
	st.ContactPages[smsID] = max(page, 1)
}

// SessionStore keeps per-session workflow state in Redis.
type SessionStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewSessionStore(client *goredis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func listKey(sessionID string) string {
	return fmt.Sprintf("sms:session:%s:list", sessionID)
}

func draftKey(sessionID, entityKey string) string {
	return fmt.Sprintf("sms:session:%s:draft:%s", sessionID, entityKey)
}

// GetListState returns the stored state, or ok=false on a miss.
func (s *SessionStore) GetListState(ctx context.Context, sessionID string) (ListState, bool, error) {
	var st ListState
	ok, err := s.getJSON(ctx, listKey(sessionID), &st)
	return st, ok, err
}

func (s *SessionStore) SaveListState(ctx context.Context, sessionID string, st ListState) error {
	return s.setJSON(ctx, listKey(sessionID), st)
}

// LoadDraft decodes the staged content for entityKey into v.
func (s *SessionStore) LoadDraft(ctx context.Context, sessionID, entityKey string, v any) (bool, error) {
	return s.getJSON(ctx, draftKey(sessionID, entityKey), v)
}

func (s *SessionStore) SaveDraft(ctx context.Context, sessionID, entityKey string, v any) error {
	return s.setJSON(ctx, draftKey(sessionID, entityKey), v)
}

func (s *SessionStore) ClearDraft(ctx context.Context, sessionID, entityKey string) error {
	return s.client.Del(ctx, draftKey(sessionID, entityKey)).Err()
}

// Ping checks if Redis is available
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *SessionStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}
