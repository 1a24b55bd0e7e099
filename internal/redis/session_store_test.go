package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// memoryHook answers GET, SET and DEL from a map so the store can be
// exercised without a server.
type memoryHook struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]string
}

func (h *memoryHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("memoryHook: no server")
	}
}

func (h *memoryHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func (h *memoryHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()

		args := cmd.Args()
		switch c := cmd.(type) {
		case *goredis.StringCmd:
			v, ok := h.data[args[1].(string)]
			if !ok {
				return goredis.Nil
			}
			c.SetVal(v)
		case *goredis.StatusCmd:
			if cmd.Name() == "ping" {
				c.SetVal("PONG")
				return nil
			}
			key := args[1].(string)
			switch v := args[2].(type) {
			case []byte:
				h.data[key] = string(v)
			case string:
				h.data[key] = v
			default:
				return fmt.Errorf("memoryHook: unexpected value %T", v)
			}
			h.ttls[key] = fmt.Sprint(args[3:])
			c.SetVal("OK")
		case *goredis.IntCmd:
			var n int64
			for _, k := range args[1:] {
				if _, ok := h.data[k.(string)]; ok {
					delete(h.data, k.(string))
					n++
				}
			}
			c.SetVal(n)
		default:
			return fmt.Errorf("memoryHook: unsupported command %s", cmd.Name())
		}
		return nil
	}
}

func newMemoryStore(t *testing.T, ttl time.Duration) (*SessionStore, *memoryHook) {
	t.Helper()
	h := &memoryHook{data: map[string]string{}, ttls: map[string]string{}}
	client := goredis.NewClient(&goredis.Options{Addr: "memory:0", MaxRetries: -1})
	client.AddHook(h)
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, ttl), h
}

func TestListStateRoundTrip(t *testing.T) {
	store, h := newMemoryStore(t, time.Hour)
	ctx := context.Background()

	if _, ok, err := store.GetListState(ctx, "s1"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	st := DefaultListState(20)
	st.Search = "promo"
	st.Page = 3
	st.SetContactPage("sms-a", 4)
	if err := store.SaveListState(ctx, "s1", st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := h.ttls[listKey("s1")]; got != "[ex 3600]" {
		t.Errorf("ttl args = %q, want session ttl", got)
	}

	got, ok, err := store.GetListState(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Search != "promo" || got.Page != 3 || got.Limit != 20 || got.OrderBy != "name" {
		t.Errorf("state = %+v", got)
	}
	if got.ContactPage("sms-a") != 4 || got.ContactPage("sms-b") != 1 {
		t.Errorf("contact pages = %v", got.ContactPages)
	}

	if _, ok, _ := store.GetListState(ctx, "s2"); ok {
		t.Error("state leaked across sessions")
	}
}

func TestDraftRoundTrip(t *testing.T) {
	store, _ := newMemoryStore(t, time.Hour)
	ctx := context.Background()

	type draft struct {
		Name    string   `json:"name"`
		ListIDs []string `json:"list_ids"`
	}

	var d draft
	if ok, err := store.LoadDraft(ctx, "s1", "new", &d); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	in := draft{Name: "Spring", ListIDs: []string{"l1", "l2"}}
	if err := store.SaveDraft(ctx, "s1", "new", in); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := store.LoadDraft(ctx, "s1", "new", &d)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if d.Name != "Spring" || strings.Join(d.ListIDs, ",") != "l1,l2" {
		t.Errorf("draft = %+v", d)
	}

	var other draft
	if ok, _ := store.LoadDraft(ctx, "s1", "other-id", &other); ok {
		t.Error("draft leaked across entities")
	}

	if err := store.ClearDraft(ctx, "s1", "new"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if ok, err := store.LoadDraft(ctx, "s1", "new", &d); ok || err != nil {
		t.Errorf("after clear: ok=%v err=%v", ok, err)
	}
	if err := store.ClearDraft(ctx, "s1", "new"); err != nil {
		t.Errorf("clearing a missing draft: %v", err)
	}
}

func TestGetListStateRejectsCorruptValue(t *testing.T) {
	store, h := newMemoryStore(t, time.Hour)
	h.data[listKey("s1")] = "{not json"

	_, ok, err := store.GetListState(context.Background(), "s1")
	if err == nil || ok {
		t.Errorf("corrupt value: ok=%v err=%v", ok, err)
	}
}

func TestSessionStorePing(t *testing.T) {
	store, _ := newMemoryStore(t, time.Hour)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
