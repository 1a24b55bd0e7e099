package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/gateway"
	"sms-campaign/internal/proxy"
	"sms-campaign/internal/redis"
	"sms-campaign/internal/repository"
)

const maxPageLimit = 100

type ListRequest struct {
	Search     *string
	Page       *int
	Limit      *int
	OrderBy    *string
	OrderByDir *string
}

type ListResult struct {
	Items             []sms.Sms           `json:"items"`
	Total             int64               `json:"total"`
	Page              int                 `json:"page"`
	Limit             int                 `json:"limit"`
	Search            string              `json:"search"`
	OrderBy           string              `json:"order_by"`
	OrderByDir        string              `json:"order_by_dir"`
	Permissions       proxy.PermissionSet `json:"permissions"`
	GatewayConfigured bool                `json:"gateway_configured"`
}

// Redirect sends the caller to another list page or detail view.
type Redirect struct {
	Page int    `json:"page,omitempty"`
	URL  string `json:"url"`
}

// ListOutcome carries either a page of results or a redirect.
type ListOutcome struct {
	Result   *ListResult
	Redirect *Redirect
}

type ListService struct {
	sms          *SmsService
	gate         *proxy.AccessControl
	store        SessionStore
	gateway      gateway.Sender
	defaultLimit int
}

func NewListService(smsService *SmsService, gate *proxy.AccessControl, store SessionStore, sender gateway.Sender, defaultLimit int) *ListService {
	if defaultLimit < 1 {
		defaultLimit = 30
	}
	return &ListService{
		sms:          smsService,
		gate:         gate,
		store:        store,
		gateway:      sender,
		defaultLimit: defaultLimit,
	}
}

func listURL(page int) string {
	return fmt.Sprintf("/v1/sms?page=%d", page)
}

func detailURL(id string) string {
	return "/v1/sms/" + id
}

// SetFilters stores list filters without fetching.
func (s *ListService) SetFilters(ctx context.Context, p proxy.Principal, sessionID string, req ListRequest) error {
	if err := s.gate.CanList(p); err != nil {
		return err
	}
	st, err := listState(ctx, s.store, sessionID, s.defaultLimit)
	if err != nil {
		return err
	}
	applyListRequest(&st, req)
	return s.store.SaveListState(ctx, sessionID, st)
}

func (s *ListService) List(ctx context.Context, p proxy.Principal, sessionID string, req ListRequest) (ListOutcome, error) {
	perms := s.gate.CheckBulk(p)
	if !perms[proxy.ViewOwn] && !perms[proxy.ViewOther] {
		return ListOutcome{}, s.gate.CanList(p)
	}

	st, err := listState(ctx, s.store, sessionID, s.defaultLimit)
	if err != nil {
		return ListOutcome{}, err
	}
	applyListRequest(&st, req)

	offset := pageOffset(st.Page, st.Limit)

	filter := repository.Filter{Search: st.Search}
	if !perms[proxy.ViewOther] {
		filter.Force = append(filter.Force, repository.Condition{
			Column:   "created_by",
			Operator: "eq",
			Value:    p.ID,
		})
	}

	items, total, err := s.sms.GetEntities(ctx, repository.ListQuery{
		Filter:     filter,
		OrderBy:    st.OrderBy,
		OrderByDir: st.OrderByDir,
		Offset:     offset,
		Limit:      st.Limit,
	})
	if err != nil {
		return ListOutcome{}, err
	}

	if total > 0 && total <= int64(offset) {
		st.Page = lastPage(total, st.Limit)
		if err := s.store.SaveListState(ctx, sessionID, st); err != nil {
			return ListOutcome{}, err
		}
		return ListOutcome{Redirect: &Redirect{Page: st.Page, URL: listURL(st.Page)}}, nil
	}

	if err := s.store.SaveListState(ctx, sessionID, st); err != nil {
		return ListOutcome{}, err
	}

	configured := s.gateway != nil && s.gateway.Configured()
	return ListOutcome{Result: &ListResult{
		Items:             items,
		Total:             total,
		Page:              st.Page,
		Limit:             st.Limit,
		Search:            st.Search,
		OrderBy:           st.OrderBy,
		OrderByDir:        st.OrderByDir,
		Permissions:       perms,
		GatewayConfigured: configured,
	}}, nil
}

// pageOffset is the first row of page. Offsets that do not fit in an int
// saturate at math.MaxInt, which lies past the end of any result.
func pageOffset(page, limit int) int {
	if page <= 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// lastPage is the page to fall back to once the current one is past the end.
func lastPage(total int64, limit int) int {
	if total == 1 || limit < 1 {
		return 1
	}
	page := int(total / int64(limit))
	if page < 1 {
		page = 1
	}
	return page
}

func applyListRequest(st *redis.ListState, req ListRequest) {
	if req.Search != nil {
		st.Search = strings.TrimSpace(*req.Search)
	}
	if req.Page != nil {
		st.Page = *req.Page
	}
	if st.Page < 1 {
		st.Page = 1
	}
	if req.Limit != nil && *req.Limit > 0 {
		st.Limit = min(*req.Limit, maxPageLimit)
	}
	if req.OrderBy != nil && repository.IsSortable(*req.OrderBy) {
		st.OrderBy = *req.OrderBy
	}
	if req.OrderByDir != nil {
		if strings.EqualFold(*req.OrderByDir, "ASC") {
			st.OrderByDir = "ASC"
		} else {
			st.OrderByDir = "DESC"
		}
	}
}
