package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"sms-campaign/internal/events"

	"github.com/google/uuid"
)

func TestBatchDeleteMixedIds(t *testing.T) {
	caller := principal("caller", "editor")
	stranger := principal("stranger", "admin")
	mine := ownedSms(caller, "Mine")
	theirs := ownedSms(stranger, "Theirs")
	f := newFixture(mine, theirs)

	missing := uuid.New().String()
	out, err := f.del.BatchDelete(context.Background(), caller, testSession, []string{mine.ID.String(), missing, theirs.ID.String()})
	if err != nil {
		t.Fatalf("batch delete: %v", err)
	}

	if _, ok := f.repo.get(mine.ID); ok {
		t.Error("own entity should be deleted")
	}
	if _, ok := f.repo.get(theirs.ID); !ok {
		t.Error("entity without delete access must survive")
	}

	var notFound, denied, batch int
	for _, fl := range out.Flashes {
		switch fl.Key {
		case "sms.error.notfound":
			notFound++
			if fl.Vars["id"] != missing {
				t.Errorf("not found flash for %s", fl.Vars["id"])
			}
		case "sms.error.accessdenied":
			denied++
		case "sms.notice.batch_deleted":
			batch++
			if fl.Vars["count"] != "1" {
				t.Errorf("count = %s", fl.Vars["count"])
			}
		default:
			t.Errorf("unexpected flash %+v", fl)
		}
	}
	if notFound != 1 || denied != 1 || batch != 1 {
		t.Errorf("flashes = %+v", out.Flashes)
	}
	if f.repo.deletes != 1 {
		t.Errorf("survivors should be removed in one call, got %d", f.repo.deletes)
	}
}

func TestBatchDeleteNothingSurvives(t *testing.T) {
	f := newFixture()
	out, err := f.del.BatchDelete(context.Background(), principal("a", "admin"), testSession, []string{"not-a-uuid"})
	if err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if len(out.Flashes) != 1 || out.Flashes[0].Key != "sms.error.notfound" {
		t.Errorf("flashes = %+v", out.Flashes)
	}
	if f.repo.deletes != 0 {
		t.Error("nothing should be deleted")
	}
}

func TestBatchDeleteVetoPerEntity(t *testing.T) {
	p := principal("a", "admin")
	keep := ownedSms(p, "Keep")
	drop := ownedSms(p, "Drop")
	f := newFixture(keep, drop)
	_ = f.bus.OnPreDelete(func(ctx context.Context, e *events.SmsEvent) error {
		if e.Sms.ID == keep.ID {
			return errors.New("used by an active campaign")
		}
		return nil
	})

	out, err := f.del.BatchDelete(context.Background(), p, testSession, []string{keep.ID.String(), drop.ID.String()})
	if err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if _, ok := f.repo.get(keep.ID); !ok {
		t.Error("vetoed entity deleted")
	}
	if _, ok := f.repo.get(drop.ID); ok {
		t.Error("entity not deleted")
	}
	if !hasFlash(out.Flashes, "sms.error.vetoed") || !hasFlash(out.Flashes, "sms.notice.batch_deleted") {
		t.Errorf("flashes = %+v", out.Flashes)
	}
}

func TestDeleteOne(t *testing.T) {
	owner := principal("owner", "editor")
	holder := principal("holder", "admin")

	free := ownedSms(owner, "Free")
	locked := ownedSms(owner, "Locked")
	now := time.Now()
	locked.CheckedOut = &now
	locked.CheckedOutBy = &holder.ID
	locked.CheckedOutByUser = holder.Name
	foreign := ownedSms(holder, "Foreign")

	tests := []struct {
		name      string
		id        string
		wantFlash string
		gone      bool
	}{
		{"deletes own", free.ID.String(), "sms.notice.deleted", true},
		{"locked", locked.ID.String(), "sms.error.locked", false},
		{"no access", foreign.ID.String(), "sms.error.accessdenied", false},
		{"missing", uuid.New().String(), "sms.error.notfound", false},
		{"garbage id", "42", "sms.error.notfound", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(free, locked, foreign)
			deletes := 0
			_ = f.bus.OnPostDelete(func(ctx context.Context, e *events.SmsEvent) error {
				deletes++
				return nil
			})

			out, err := f.del.DeleteOne(context.Background(), owner, testSession, tt.id)
			if err != nil {
				t.Fatalf("delete: %v", err)
			}
			if len(out.Flashes) != 1 || out.Flashes[0].Key != tt.wantFlash {
				t.Errorf("flashes = %+v", out.Flashes)
			}
			if out.Redirect == nil || out.Redirect.URL != listURL(1) {
				t.Errorf("redirect = %+v", out.Redirect)
			}
			if tt.gone != (deletes == 1) {
				t.Errorf("post delete fired %d times", deletes)
			}
			for _, row := range []uuid.UUID{free.ID, locked.ID, foreign.ID} {
				_, present := f.repo.get(row)
				wantPresent := !(tt.gone && row.String() == tt.id)
				if present != wantPresent {
					t.Errorf("row %s present = %v", row, present)
				}
			}
		})
	}
}
