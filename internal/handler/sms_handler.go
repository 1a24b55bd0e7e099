package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sms-campaign/internal/proxy"
	"sms-campaign/internal/services"
	"sms-campaign/internal/transport/httpdto"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SmsHandler struct {
	list   *services.ListService
	form   *services.FormService
	delete *services.DeleteService
	view   *services.ViewService
	send   *services.SendService
}

func NewSmsHandler(list *services.ListService, form *services.FormService, del *services.DeleteService, view *services.ViewService, send *services.SendService) *SmsHandler {
	return &SmsHandler{list: list, form: form, delete: del, view: view, send: send}
}

// Register mounts the sms routes on an authenticated group.
func (h *SmsHandler) Register(r gin.IRoutes) {
	r.GET("/sms", h.List)
	r.POST("/sms/filters", h.SetFilters)
	r.GET("/sms/new", h.New)
	r.POST("/sms", h.Create)
	r.POST("/sms/batch-delete", h.BatchDelete)
	r.GET("/sms/:id", h.View)
	r.GET("/sms/:id/contacts", h.Contacts)
	r.GET("/sms/:id/preview", h.Preview)
	r.GET("/sms/:id/edit", h.Edit)
	r.PUT("/sms/:id", h.Update)
	r.GET("/sms/:id/clone", h.Clone)
	r.POST("/sms/:id/clone", h.CreateClone)
	r.PUT("/sms/:id/draft", h.SaveDraft)
	r.DELETE("/sms/:id", h.Delete)
	r.POST("/sms/:id/send-example", h.SendExample)
}

func (h *SmsHandler) List(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	var q httpdto.ListSmsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid query", "INVALID_REQUEST"))
		return
	}

	out, err := h.list.List(c.Request.Context(), p, sid, services.ListRequest{
		Search:     q.Search,
		Page:       q.Page,
		Limit:      q.Limit,
		OrderBy:    q.OrderBy,
		OrderByDir: q.OrderByDir,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if out.Redirect != nil {
		c.Redirect(http.StatusSeeOther, out.Redirect.URL)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromListResult(out.Result)))
}

func (h *SmsHandler) SetFilters(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	var req httpdto.FiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	page := 1
	err := h.list.SetFilters(c.Request.Context(), p, sid, services.ListRequest{
		Search:     req.Search,
		Page:       &page,
		Limit:      req.Limit,
		OrderBy:    req.OrderBy,
		OrderByDir: req.OrderByDir,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"filters_saved": true}))
}

func (h *SmsHandler) New(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	out, err := h.form.OpenNew(c.Request.Context(), p, sid)
	writeOutcome(c, out, err)
}

func (h *SmsHandler) Create(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	req, action, ok := bindForm(c)
	if !ok {
		return
	}
	out, err := h.form.SubmitNew(c.Request.Context(), p, sid, req.SmsForm, action)
	writeOutcome(c, out, err)
}

func (h *SmsHandler) View(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	from, okFrom := queryTime(c, "from")
	to, okTo := queryTime(c, "to")
	if !okFrom || !okTo {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid date range", "INVALID_REQUEST"))
		return
	}

	out, err := h.view.View(c.Request.Context(), p, sid, id, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(outcomeStatus(out.Outcome), httpdto.NewSuccessResponse(httpdto.FromViewOutcome(out)))
}

func (h *SmsHandler) Contacts(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var page *int
	if raw := c.Query("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid page", "INVALID_REQUEST"))
			return
		}
		page = &v
	}

	out, err := h.view.Contacts(c.Request.Context(), p, sid, id, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromContactPage(out)))
}

func (h *SmsHandler) Preview(c *gin.Context) {
	p, _, ok := caller(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
		return
	}
	entity, err := h.view.Preview(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PreviewResponse{
		ID:      entity.ID.String(),
		Name:    entity.Name,
		Message: entity.Message,
	}))
}

func (h *SmsHandler) Edit(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.form.OpenEdit(c.Request.Context(), p, sid, id)
	writeOutcome(c, out, err)
}

func (h *SmsHandler) Update(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, action, ok := bindForm(c)
	if !ok {
		return
	}
	out, err := h.form.SubmitEdit(c.Request.Context(), p, sid, id, req.SmsForm, action)
	writeOutcome(c, out, err)
}

func (h *SmsHandler) Clone(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.form.OpenClone(c.Request.Context(), p, sid, id)
	writeOutcome(c, out, err)
}

func (h *SmsHandler) CreateClone(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, action, ok := bindForm(c)
	if !ok {
		return
	}
	out, err := h.form.SubmitClone(c.Request.Context(), p, sid, id, req.SmsForm, action)
	writeOutcome(c, out, err)
}

func (h *SmsHandler) SaveDraft(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req httpdto.SmsFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	out, err := h.form.SaveDraft(c.Request.Context(), p, sid, id, req.SmsForm)
	writeOutcome(c, out, err)
}

func (h *SmsHandler) Delete(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}
	out, err := h.delete.DeleteOne(c.Request.Context(), p, sid, c.Param("id"))
	writeOutcome(c, out, err)
}

// BatchDelete accepts ids as {"ids": [...]} or as a JSON array in ?ids=.
func (h *SmsHandler) BatchDelete(c *gin.Context) {
	p, sid, ok := caller(c)
	if !ok {
		return
	}

	var ids []string
	if raw := c.Query("ids"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid ids", "INVALID_REQUEST"))
			return
		}
	} else {
		var req httpdto.BatchDeleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
		ids = req.IDs
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("ids are required", "INVALID_REQUEST"))
		return
	}

	out, err := h.delete.BatchDelete(c.Request.Context(), p, sid, ids)
	writeOutcome(c, out, err)
}

func (h *SmsHandler) SendExample(c *gin.Context) {
	p, _, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req httpdto.SendExampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	out, err := h.send.SendExample(c.Request.Context(), p, id, req.Number)
	writeOutcome(c, out, err)
}

func caller(c *gin.Context) (proxy.Principal, string, bool) {
	p, ok := services.PrincipalFromContext(c.Request.Context())
	sid, okSid := services.SessionIDFromContext(c.Request.Context())
	if !ok || !okSid {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return proxy.Principal{}, "", false
	}
	return p, sid, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid sms id", "INVALID_REQUEST"))
		return uuid.Nil, false
	}
	return id, true
}

func bindForm(c *gin.Context) (httpdto.SmsFormRequest, services.FormAction, bool) {
	var req httpdto.SmsFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return req, "", false
	}
	action, ok := services.ParseFormAction(req.Action)
	if !ok {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unknown action", "INVALID_REQUEST"))
		return req, "", false
	}
	return req, action, true
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	return nil, false
}

func outcomeStatus(out services.Outcome) int {
	switch out.State {
	case services.StateNotFound:
		return http.StatusNotFound
	case services.StateLocked:
		return http.StatusLocked
	case services.StateAccessDenied:
		return http.StatusForbidden
	}
	return http.StatusOK
}

func writeOutcome(c *gin.Context, out services.Outcome, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(outcomeStatus(out), httpdto.NewSuccessResponse(httpdto.FromOutcome(out)))
}

func writeError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	msg := err.Error()
	switch {
	case errors.Is(err, sms_errors.ErrForbidden):
		msg = "access denied"
	case status == http.StatusInternalServerError:
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, httpdto.NewErrorResponse(msg, services.ErrorCode(err)))
}
