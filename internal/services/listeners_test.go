package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"sms-campaign/internal/domain/audit"
	"sms-campaign/internal/events"
)

type fakeArchiver struct {
	keys  []string
	items []any
}

func (a *fakeArchiver) ArchiveKey(kind, id string, at time.Time) string {
	return kind + "/" + id
}

func (a *fakeArchiver) PutJSON(ctx context.Context, key string, v any) error {
	a.keys = append(a.keys, key)
	a.items = append(a.items, v)
	return nil
}

func TestReplaceTokens(t *testing.T) {
	tests := []struct {
		name    string
		content string
		tokens  map[string]string
		want    string
	}{
		{"no tokens", "Hi {name}", nil, "Hi {name}"},
		{"single", "Hi {name}", map[string]string{"{name}": "Ada"}, "Hi Ada"},
		{"longest wins", "{contactfield=first} {contactfield=firstname}",
			map[string]string{"{contactfield=first}": "A", "{contactfield=firstname}": "Ada"}, "A Ada"},
		{"repeated", "{x}{x}", map[string]string{"{x}": "1"}, "11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &events.TokenReplacementEvent{Content: tt.content, Tokens: tt.tokens}
			if err := replaceTokens(context.Background(), e); err != nil {
				t.Fatal(err)
			}
			if e.Content != tt.want {
				t.Errorf("got %q, want %q", e.Content, tt.want)
			}
		})
	}
}

func TestExtractURLs(t *testing.T) {
	got := extractURLs("Shop https://shop.example.com/sale, or http://x.io. Again https://shop.example.com/sale")
	want := []string{"https://shop.example.com/sale", "http://x.io"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if len(extractURLs("no links here")) != 0 {
		t.Error("expected no urls")
	}
}

func TestListenersAuditTrackAndArchive(t *testing.T) {
	p := principal("a", "admin")
	f := newFixture()
	archiver := &fakeArchiver{}
	if err := RegisterListeners(f.bus, ListenerDeps{Audit: f.audit, Stats: f.stats, Archiver: archiver}); err != nil {
		t.Fatal(err)
	}

	form := validForm("Linked")
	form.Message = "See https://example.com/deal"
	out, err := f.form.SubmitNew(context.Background(), p, testSession, form, ActionSave)
	if err != nil || out.State != StateSaved {
		t.Fatalf("submit: state=%s err=%v", out.State, err)
	}
	id := out.Sms.ID

	if urls := f.stats.trackables[id]; len(urls) != 1 || urls[0] != "https://example.com/deal" {
		t.Errorf("trackables = %v", urls)
	}

	if _, err := f.del.DeleteOne(context.Background(), p, testSession, id.String()); err != nil {
		t.Fatal(err)
	}
	if len(archiver.keys) != 1 || archiver.keys[0] != "sms/"+id.String() {
		t.Errorf("archived = %v", archiver.keys)
	}

	var actions []string
	for _, e := range f.audit.entries {
		if e.EntityID != id || e.EntityType != events.AggregateTypeSms || e.UserID != p.ID {
			t.Errorf("entry = %+v", e)
		}
		actions = append(actions, e.Action)
	}
	if !reflect.DeepEqual(actions, []string{audit.ActionCreate, audit.ActionDelete}) {
		t.Errorf("actions = %v", actions)
	}
}
