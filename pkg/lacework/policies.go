package lacework

import (
	"context"
	"net/url"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

// PoliciesService manages policies. Members are keyed by policy id
// (e.g. lacework-global-1) rather than a guid.
type PoliciesService struct {
	*CRUDService
}

// PolicyUpdate is one entry of a bulk update.
type PolicyUpdate struct {
	PolicyID string `json:"policyId"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// BulkUpdate changes the state or severity of several policies at once.
// PATCH /api/v2/Policies
func (p *PoliciesService) BulkUpdate(ctx context.Context, updates []PolicyUpdate, opts ...api.RequestOption) (*api.Response, error) {
	return p.session.Patch(ctx, p.path, withJSON(opts, updates)...)
}

// QueriesService manages LQL queries.
type QueriesService struct {
	*CRUDService
}

// Execute runs an ad hoc query. body is {"query": {"queryText": ...}, "arguments": [...]}.
// POST /api/v2/Queries/execute
func (q *QueriesService) Execute(ctx context.Context, body any, opts ...api.RequestOption) (*api.Response, error) {
	return q.session.Post(ctx, q.path+"/execute", withJSON(opts, body)...)
}

// QueryArgument is a named argument of a stored query, e.g. StartTimeRange.
type QueryArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExecuteByID runs a stored query.
// POST /api/v2/Queries/{id}/execute
func (q *QueriesService) ExecuteByID(ctx context.Context, id string, args []QueryArgument, opts ...api.RequestOption) (*api.Response, error) {
	body := map[string]any{"arguments": args}
	if args == nil {
		body["arguments"] = []QueryArgument{}
	}
	return q.session.Post(ctx, q.path+"/"+url.PathEscape(id)+"/execute", withJSON(opts, body)...)
}

// Validate checks the syntax of queryText without running it.
// POST /api/v2/Queries/validate
func (q *QueriesService) Validate(ctx context.Context, queryText string, opts ...api.RequestOption) (*api.Response, error) {
	return q.session.Post(ctx, q.path+"/validate", withJSON(opts, map[string]string{"queryText": queryText})...)
}
