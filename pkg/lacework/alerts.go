package lacework

import (
	"context"
	"encoding/json"
	"iter"
	"net/url"
	"time"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

// Alert close reasons.
const (
	CloseReasonOther         = 0
	CloseReasonFalsePositive = 1
	CloseReasonNotEnoughInfo = 2
	CloseReasonMalicious     = 3
	CloseReasonExpected      = 4
)

// AlertsService reads and triages alerts.
type AlertsService struct {
	session *api.Session
	path    string
}

func windowParams(start, end time.Time) api.RequestOption {
	return api.WithParams(url.Values{
		"startTime": {FormatTime(start)},
		"endTime":   {FormatTime(end)},
	})
}

// List returns the first page of alerts raised between start and end.
// GET /api/v2/Alerts?startTime=...&endTime=...
func (a *AlertsService) List(ctx context.Context, start, end time.Time, opts ...api.RequestOption) (*api.Response, error) {
	return a.session.Get(ctx, a.path, append([]api.RequestOption{windowParams(start, end)}, opts...)...)
}

// Items ranges over every alert raised between start and end.
func (a *AlertsService) Items(ctx context.Context, start, end time.Time, opts ...api.RequestOption) iter.Seq2[json.RawMessage, error] {
	return a.session.Items(ctx, a.path, append([]api.RequestOption{windowParams(start, end)}, opts...)...)
}

// Details fetches one scope of an alert: Details, Investigation, Events,
// RelatedAlerts, Integrations or Timeline. An empty scope means Details.
// GET /api/v2/Alerts/{id}?scope=...
func (a *AlertsService) Details(ctx context.Context, id, scope string, opts ...api.RequestOption) (*api.Response, error) {
	if scope == "" {
		scope = "Details"
	}
	return a.session.Get(ctx, a.path+"/"+url.PathEscape(id),
		append([]api.RequestOption{api.WithParam("scope", scope)}, opts...)...)
}

// Comment adds a comment to the alert timeline.
// POST /api/v2/Alerts/{id}/comment
func (a *AlertsService) Comment(ctx context.Context, id, comment string, opts ...api.RequestOption) (*api.Response, error) {
	body := map[string]string{"comment": comment}
	return a.session.Post(ctx, a.path+"/"+url.PathEscape(id)+"/comment", withJSON(opts, body)...)
}

// Close closes the alert with one of the CloseReason codes. The API requires
// a comment when reason is CloseReasonOther.
// POST /api/v2/Alerts/{id}/close
func (a *AlertsService) Close(ctx context.Context, id string, reason int, comment string, opts ...api.RequestOption) (*api.Response, error) {
	body := struct {
		Reason  int    `json:"reason"`
		Comment string `json:"comment,omitempty"`
	}{reason, comment}
	return a.session.Post(ctx, a.path+"/"+url.PathEscape(id)+"/close", withJSON(opts, body)...)
}

// Search ranges over alerts matching filter.
// POST /api/v2/Alerts/search
func (a *AlertsService) Search(ctx context.Context, filter *SearchFilter, opts ...api.RequestOption) iter.Seq2[json.RawMessage, error] {
	return a.session.SearchItems(ctx, a.path+"/search", filter.body(), opts...)
}

// AuditLogsService reads the account audit trail.
type AuditLogsService struct {
	session *api.Session
	path    string
}

// List returns audit log entries between start and end.
// GET /api/v2/AuditLogs?startTime=...&endTime=...
func (a *AuditLogsService) List(ctx context.Context, start, end time.Time, opts ...api.RequestOption) (*api.Response, error) {
	return a.session.Get(ctx, a.path, append([]api.RequestOption{windowParams(start, end)}, opts...)...)
}

// Search ranges over audit log entries matching filter.
// POST /api/v2/AuditLogs/search
func (a *AuditLogsService) Search(ctx context.Context, filter *SearchFilter, opts ...api.RequestOption) iter.Seq2[json.RawMessage, error] {
	return a.session.SearchItems(ctx, a.path+"/search", filter.body(), opts...)
}
