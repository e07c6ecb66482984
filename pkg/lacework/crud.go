package lacework

import (
	"context"
	"encoding/json"
	"iter"
	"net/url"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

// CRUDService covers the resources that share the standard v2 layout:
// a collection path, a /{guid} member path and a /search endpoint.
type CRUDService struct {
	session *api.Session
	path    string
}

func newCRUD(s *api.Session, resource string) *CRUDService {
	return &CRUDService{session: s, path: apiPrefix + resource}
}

// Path returns the collection path, e.g. /api/v2/AlertChannels.
func (c *CRUDService) Path() string { return c.path }

func (c *CRUDService) member(id string) string {
	return c.path + "/" + url.PathEscape(id)
}

// Create creates a resource from body.
// POST /api/v2/{Resource}
func (c *CRUDService) Create(ctx context.Context, body any, opts ...api.RequestOption) (*api.Response, error) {
	return c.session.Post(ctx, c.path, withJSON(opts, body)...)
}

// Get fetches one resource.
// GET /api/v2/{Resource}/{id}
func (c *CRUDService) Get(ctx context.Context, id string, opts ...api.RequestOption) (*api.Response, error) {
	return c.session.Get(ctx, c.member(id), opts...)
}

// List returns the first page of the collection.
// GET /api/v2/{Resource}
func (c *CRUDService) List(ctx context.Context, opts ...api.RequestOption) (*api.Response, error) {
	return c.session.Get(ctx, c.path, opts...)
}

// Items ranges over every item of the collection, following nextPage links.
func (c *CRUDService) Items(ctx context.Context, opts ...api.RequestOption) iter.Seq2[json.RawMessage, error] {
	return c.session.Items(ctx, c.path, opts...)
}

// Update applies a partial update.
// PATCH /api/v2/{Resource}/{id}
func (c *CRUDService) Update(ctx context.Context, id string, body any, opts ...api.RequestOption) (*api.Response, error) {
	return c.session.Patch(ctx, c.member(id), withJSON(opts, body)...)
}

// Delete removes one resource. The returned response has an empty body.
// DELETE /api/v2/{Resource}/{id}
func (c *CRUDService) Delete(ctx context.Context, id string, opts ...api.RequestOption) (*api.Response, error) {
	return c.session.Delete(ctx, c.member(id), opts...)
}

// Search ranges over every match of filter.
// POST /api/v2/{Resource}/search
func (c *CRUDService) Search(ctx context.Context, filter *SearchFilter, opts ...api.RequestOption) iter.Seq2[json.RawMessage, error] {
	return c.session.SearchItems(ctx, c.path+"/search", filter.body(), opts...)
}
