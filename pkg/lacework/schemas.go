package lacework

import (
	"context"
	"encoding/json"
	"iter"
	"net/url"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

// SchemasService describes the request bodies each resource accepts.
type SchemasService struct {
	session *api.Session
	path    string
}

// Get returns the schema of a resource type, optionally narrowed to a
// subtype (e.g. "AlertChannels", "SlackChannel"). An empty type lists the
// available schemas.
// GET /api/v2/schemas/{type}/{subtype}
func (s *SchemasService) Get(ctx context.Context, typ, subtype string, opts ...api.RequestOption) (*api.Response, error) {
	path := s.path
	if typ != "" {
		path += "/" + url.PathEscape(typ)
		if subtype != "" {
			path += "/" + url.PathEscape(subtype)
		}
	}
	return s.session.Get(ctx, path, opts...)
}

// UserProfileService reads the profile of the API key's user.
type UserProfileService struct {
	session *api.Session
	path    string
}

// Get returns the profile of the API key's user, including the accounts it
// can reach.
// GET /api/v2/UserProfile
func (u *UserProfileService) Get(ctx context.Context, opts ...api.RequestOption) (*api.Response, error) {
	return u.session.Get(ctx, u.path, opts...)
}

// VulnerabilitiesService searches assessments and triggers container scans.
type VulnerabilitiesService struct {
	session *api.Session
	path    string
}

// SearchContainers ranges over container vulnerability observations.
// POST /api/v2/Vulnerabilities/Containers/search
func (v *VulnerabilitiesService) SearchContainers(ctx context.Context, filter *SearchFilter, opts ...api.RequestOption) iter.Seq2[json.RawMessage, error] {
	return v.session.SearchItems(ctx, v.path+"/Containers/search", filter.body(), opts...)
}

// SearchHosts ranges over host vulnerability observations.
// POST /api/v2/Vulnerabilities/Hosts/search
func (v *VulnerabilitiesService) SearchHosts(ctx context.Context, filter *SearchFilter, opts ...api.RequestOption) iter.Seq2[json.RawMessage, error] {
	return v.session.SearchItems(ctx, v.path+"/Hosts/search", filter.body(), opts...)
}

// ScanRequest identifies the image to scan.
type ScanRequest struct {
	Registry   string `json:"registry"`
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
}

// ScanContainer requests an on-demand scan. The response data carries the
// requestId to poll with ScanStatus.
// POST /api/v2/Vulnerabilities/Containers/scan
func (v *VulnerabilitiesService) ScanContainer(ctx context.Context, req ScanRequest, opts ...api.RequestOption) (*api.Response, error) {
	return v.session.Post(ctx, v.path+"/Containers/scan", withJSON(opts, req)...)
}

// ScanStatus returns the progress and results of an on-demand scan.
// GET /api/v2/Vulnerabilities/Containers/scan/{requestId}
func (v *VulnerabilitiesService) ScanStatus(ctx context.Context, requestID string, opts ...api.RequestOption) (*api.Response, error) {
	return v.session.Get(ctx, v.path+"/Containers/scan/"+url.PathEscape(requestID), opts...)
}
