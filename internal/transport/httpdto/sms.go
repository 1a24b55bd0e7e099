package httpdto

import (
	"time"

	"sms-campaign/internal/domain/audit"
	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/proxy"
	"sms-campaign/internal/services"
)

// SmsFormRequest is used for POST /sms, PUT /sms/:id and the clone and draft routes
type SmsFormRequest struct {
	services.SmsForm
	Action string `json:"action"`
}

// FiltersRequest is used for POST /sms/filters
type FiltersRequest struct {
	Search     *string `json:"search"`
	Limit      *int    `json:"limit"`
	OrderBy    *string `json:"order_by"`
	OrderByDir *string `json:"order_by_dir"`
}

// ListSmsQuery holds query parameters for GET /sms
type ListSmsQuery struct {
	Search     *string `form:"search"`
	Page       *int    `form:"page"`
	Limit      *int    `form:"limit"`
	OrderBy    *string `form:"order_by"`
	OrderByDir *string `form:"order_by_dir"`
}

type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}

type SendExampleRequest struct {
	Number string `json:"number"`
}

// SmsDTO represents an sms in API responses
type SmsDTO struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Message       string     `json:"message"`
	SmsType       string     `json:"sms_type"`
	Language      string     `json:"language"`
	Category      string     `json:"category,omitempty"`
	ListIDs       []string   `json:"list_ids,omitempty"`
	IsPublished   bool       `json:"is_published"`
	PublishUp     *time.Time `json:"publish_up,omitempty"`
	PublishDown   *time.Time `json:"publish_down,omitempty"`
	SentCount     int        `json:"sent_count"`
	CreatedBy     string     `json:"created_by,omitempty"`
	CreatedByName string     `json:"created_by_name,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	CheckedOutBy  string     `json:"checked_out_by,omitempty"`
}

func FromSms(s *sms.Sms) *SmsDTO {
	if s == nil {
		return nil
	}
	dto := &SmsDTO{
		Name:          s.Name,
		Description:   s.Description,
		Message:       s.Message,
		SmsType:       string(s.SmsType),
		Language:      s.Language,
		Category:      s.Category,
		ListIDs:       s.ListIDs,
		IsPublished:   s.IsPublished,
		PublishUp:     s.PublishUp,
		PublishDown:   s.PublishDown,
		SentCount:     s.SentCount,
		CreatedByName: s.CreatedByUser,
		CheckedOutBy:  s.CheckedOutByUser,
	}
	if !s.IsNew() {
		dto.ID = s.ID.String()
		dto.CreatedBy = s.CreatedBy.String()
		created, updated := s.CreatedAt, s.UpdatedAt
		dto.CreatedAt = &created
		dto.UpdatedAt = &updated
	}
	return dto
}

func FromSmsSlice(items []sms.Sms) []SmsDTO {
	out := make([]SmsDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromSms(&items[i]))
	}
	return out
}

// WorkflowResponse is returned by every form, delete and send route
type WorkflowResponse struct {
	State      string             `json:"state,omitempty"`
	Redirect   *services.Redirect `json:"redirect,omitempty"`
	Flashes    []services.Flash   `json:"flashes,omitempty"`
	Errors     map[string]string  `json:"errors,omitempty"`
	Sms        *SmsDTO            `json:"sms,omitempty"`
	Draft      *services.SmsForm  `json:"draft,omitempty"`
	CloseModal bool               `json:"close_modal,omitempty"`
}

func FromOutcome(o services.Outcome) WorkflowResponse {
	return WorkflowResponse{
		State:      string(o.State),
		Redirect:   o.Redirect,
		Flashes:    o.Flashes,
		Errors:     o.Errors,
		Sms:        FromSms(o.Sms),
		Draft:      o.Draft,
		CloseModal: o.CloseModal,
	}
}

type ListSmsResponse struct {
	Items             []SmsDTO            `json:"items"`
	Total             int64               `json:"total"`
	Page              int                 `json:"page"`
	Limit             int                 `json:"limit"`
	Search            string              `json:"search"`
	OrderBy           string              `json:"order_by"`
	OrderByDir        string              `json:"order_by_dir"`
	Permissions       proxy.PermissionSet `json:"permissions"`
	GatewayConfigured bool                `json:"gateway_configured"`
}

func FromListResult(r *services.ListResult) ListSmsResponse {
	return ListSmsResponse{
		Items:             FromSmsSlice(r.Items),
		Total:             r.Total,
		Page:              r.Page,
		Limit:             r.Limit,
		Search:            r.Search,
		OrderBy:           r.OrderBy,
		OrderByDir:        r.OrderByDir,
		Permissions:       r.Permissions,
		GatewayConfigured: r.GatewayConfigured,
	}
}

type TrackableDTO struct {
	URL        string `json:"url"`
	Hits       int64  `json:"hits"`
	UniqueHits int64  `json:"unique_hits"`
}

type AuditEntryDTO struct {
	Action    string    `json:"action"`
	UserName  string    `json:"user_name"`
	Details   string    `json:"details,omitempty"`
	DateAdded time.Time `json:"date_added"`
}

type ContactStatDTO struct {
	ContactID   string    `json:"contact_id,omitempty"`
	PhoneNumber string    `json:"phone_number"`
	DateSent    time.Time `json:"date_sent"`
	IsFailed    bool      `json:"is_failed"`
	Status      string    `json:"status,omitempty"`
}

type ContactsResponse struct {
	Items []ContactStatDTO `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func FromContactPage(p services.ContactPage) ContactsResponse {
	out := ContactsResponse{Total: p.Total, Page: p.Page, Limit: p.Limit, Items: make([]ContactStatDTO, 0, len(p.Items))}
	for _, st := range p.Items {
		item := ContactStatDTO{
			PhoneNumber: st.PhoneNumber,
			DateSent:    st.DateSent,
			IsFailed:    st.IsFailed,
			Status:      st.Status,
		}
		if st.ContactID != nil {
			item.ContactID = st.ContactID.String()
		}
		out.Items = append(out.Items, item)
	}
	return out
}

type ViewSmsResponse struct {
	WorkflowResponse
	ClickStats  []TrackableDTO      `json:"click_stats"`
	AuditLog    []AuditEntryDTO     `json:"audit_log"`
	Permissions proxy.PermissionSet `json:"permissions"`
	Hits        []sms.HitPoint      `json:"hits"`
	Contacts    ContactsResponse    `json:"contacts"`
}

func FromViewOutcome(v services.ViewOutcome) ViewSmsResponse {
	out := ViewSmsResponse{WorkflowResponse: FromOutcome(v.Outcome)}
	if v.Detail == nil {
		return out
	}
	out.ClickStats = make([]TrackableDTO, 0, len(v.Detail.ClickStats))
	for _, t := range v.Detail.ClickStats {
		out.ClickStats = append(out.ClickStats, TrackableDTO{URL: t.URL, Hits: t.Hits, UniqueHits: t.UniqueHits})
	}
	out.AuditLog = fromAuditLogs(v.Detail.AuditLog)
	out.Permissions = v.Detail.Permissions
	out.Hits = v.Detail.Hits
	out.Contacts = FromContactPage(v.Detail.Contacts)
	return out
}

func fromAuditLogs(logs []audit.Log) []AuditEntryDTO {
	out := make([]AuditEntryDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, AuditEntryDTO{Action: l.Action, UserName: l.UserName, Details: l.Details, DateAdded: l.DateAdded})
	}
	return out
}

// PreviewResponse is returned by GET /sms/:id/preview
type PreviewResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}
