package services

import (
	"context"

	"sms-campaign/internal/redis"
)

// SessionStore holds per-session workflow state.
type SessionStore interface {
	GetListState(ctx context.Context, sessionID string) (redis.ListState, bool, error)
	SaveListState(ctx context.Context, sessionID string, st redis.ListState) error
	LoadDraft(ctx context.Context, sessionID, entityKey string, v any) (bool, error)
	SaveDraft(ctx context.Context, sessionID, entityKey string, v any) error
	ClearDraft(ctx context.Context, sessionID, entityKey string) error
}

// listState loads the session's list state, falling back to defaults.
func listState(ctx context.Context, store SessionStore, sessionID string, defaultLimit int) (redis.ListState, error) {
	st, ok, err := store.GetListState(ctx, sessionID)
	if err != nil {
		return redis.ListState{}, err
	}
	def := redis.DefaultListState(defaultLimit)
	if !ok {
		return def, nil
	}
	if st.Page < 1 {
		st.Page = 1
	}
	if st.Limit < 1 {
		st.Limit = def.Limit
	}
	if st.OrderBy == "" {
		st.OrderBy = def.OrderBy
	}
	if st.OrderByDir == "" {
		st.OrderByDir = def.OrderByDir
	}
	return st, nil
}

// currentPage is the list page the session last showed.
func currentPage(ctx context.Context, store SessionStore, sessionID string) int {
	st, ok, err := store.GetListState(ctx, sessionID)
	if err != nil || !ok || st.Page < 1 {
		return 1
	}
	return st.Page
}
