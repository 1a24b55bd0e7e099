package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"sms-campaign/internal/domain/audit"
	"sms-campaign/internal/events"
	"sms-campaign/internal/repository"
	"sms-campaign/pkg/logger"
)

// Archiver stores snapshots of deleted messages.
type Archiver interface {
	ArchiveKey(kind, id string, at time.Time) string
	PutJSON(ctx context.Context, key string, v any) error
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ListenerDeps are the collaborators the built-in listeners write to. Nil
// fields disable the matching listener.
type ListenerDeps struct {
	Audit    repository.AuditRepository
	Stats    repository.StatsRepository
	Archiver Archiver
	Notifier *events.RedisNotifier
	Logger   *logger.Logger
}

// RegisterListeners attaches the built-in listeners to bus.
func RegisterListeners(bus *events.Bus, deps ListenerDeps) error {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	if err := bus.OnTokenReplacement(replaceTokens); err != nil {
		return err
	}

	if deps.Audit != nil {
		if err := bus.OnPostSave(auditSave(deps.Audit)); err != nil {
			return err
		}
		if err := bus.OnPostDelete(auditDelete(deps.Audit)); err != nil {
			return err
		}
	}

	if deps.Stats != nil {
		if err := bus.OnPostSave(syncTrackables(deps.Stats)); err != nil {
			return err
		}
	}

	if deps.Archiver != nil {
		if err := bus.OnPostDelete(archiveDeleted(deps.Archiver)); err != nil {
			return err
		}
	}

	if deps.Notifier != nil {
		if err := deps.Notifier.Register(bus); err != nil {
			return err
		}
	}

	deps.Logger.Infof("registered sms listeners: post_save=%d post_delete=%d on_send=%d",
		bus.Listeners(events.SmsPostSave), bus.Listeners(events.SmsPostDelete), bus.Listeners(events.SmsOnSend))
	return nil
}

// replaceTokens substitutes every token in e.Tokens. Longer tokens win over
// their prefixes.
func replaceTokens(_ context.Context, e *events.TokenReplacementEvent) error {
	if len(e.Tokens) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.Tokens))
	for k := range e.Tokens {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, e.Tokens[k])
	}
	e.Content = strings.NewReplacer(pairs...).Replace(e.Content)
	return nil
}

func auditSave(repo repository.AuditRepository) events.SmsListener {
	return func(ctx context.Context, e *events.SmsEvent) error {
		action := audit.ActionUpdate
		if e.IsNew {
			action = audit.ActionCreate
		}
		details, err := json.Marshal(map[string]any{"name": e.Sms.Name, "sms_type": e.Sms.SmsType, "is_published": e.Sms.IsPublished})
		if err != nil {
			return err
		}
		return repo.Create(ctx, &audit.Log{
			EntityType: events.AggregateTypeSms,
			EntityID:   e.Sms.ID,
			Action:     action,
			Details:    string(details),
			UserID:     e.Principal.ID,
			UserName:   e.Principal.Name,
		})
	}
}

func auditDelete(repo repository.AuditRepository) events.SmsListener {
	return func(ctx context.Context, e *events.SmsEvent) error {
		return repo.Create(ctx, &audit.Log{
			EntityType: events.AggregateTypeSms,
			EntityID:   e.Sms.ID,
			Action:     audit.ActionDelete,
			Details:    fmt.Sprintf(`{"name":%q}`, e.Sms.Name),
			UserID:     e.Principal.ID,
			UserName:   e.Principal.Name,
		})
	}
}

// extractURLs returns the distinct links in content in order of appearance.
func extractURLs(content string) []string {
	matches := urlPattern.FindAllString(content, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)")
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func syncTrackables(repo repository.StatsRepository) events.SmsListener {
	return func(ctx context.Context, e *events.SmsEvent) error {
		urls := extractURLs(e.Sms.Message)
		if len(urls) == 0 {
			return nil
		}
		return repo.SyncTrackables(ctx, e.Sms.ID, urls)
	}
}

func archiveDeleted(a Archiver) events.SmsListener {
	return func(ctx context.Context, e *events.SmsEvent) error {
		key := a.ArchiveKey(events.AggregateTypeSms, e.Sms.ID.String(), time.Now())
		return a.PutJSON(ctx, key, e.Sms)
	}
}
