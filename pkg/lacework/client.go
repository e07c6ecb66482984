// Package lacework exposes the Lacework v2 resources on top of an api.Session.
// Every service is a thin pass-through: it builds the path and body, and the
// session does authentication, retries and error normalization.
package lacework

import (
	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

const apiPrefix = "/api/v2/"

// Client groups the resource services of one account. The embedded Session
// stays available for endpoints the SDK does not wrap.
type Client struct {
	*api.Session

	AlertChannels           *CRUDService
	AlertProfiles           *CRUDService
	AlertRules              *CRUDService
	Alerts                  *AlertsService
	AuditLogs               *AuditLogsService
	CloudAccounts           *CRUDService
	ContainerRegistries     *CRUDService
	Policies                *PoliciesService
	Queries                 *QueriesService
	ReportRules             *CRUDService
	ResourceGroups          *CRUDService
	Schemas                 *SchemasService
	TeamMembers             *CRUDService
	UserProfile             *UserProfileService
	Vulnerabilities         *VulnerabilitiesService
	VulnerabilityExceptions *CRUDService
}

// New builds a Session from cfg and wires every service to it.
func New(cfg api.Config) (*Client, error) {
	s, err := api.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithSession(s), nil
}

// NewWithSession wires every service to an existing session.
func NewWithSession(s *api.Session) *Client {
	return &Client{
		Session: s,

		AlertChannels:           newCRUD(s, "AlertChannels"),
		AlertProfiles:           newCRUD(s, "AlertProfiles"),
		AlertRules:              newCRUD(s, "AlertRules"),
		Alerts:                  &AlertsService{session: s, path: apiPrefix + "Alerts"},
		AuditLogs:               &AuditLogsService{session: s, path: apiPrefix + "AuditLogs"},
		CloudAccounts:           newCRUD(s, "CloudAccounts"),
		ContainerRegistries:     newCRUD(s, "ContainerRegistries"),
		Policies:                &PoliciesService{CRUDService: newCRUD(s, "Policies")},
		Queries:                 &QueriesService{CRUDService: newCRUD(s, "Queries")},
		ReportRules:             newCRUD(s, "ReportRules"),
		ResourceGroups:          newCRUD(s, "ResourceGroups"),
		Schemas:                 &SchemasService{session: s, path: apiPrefix + "schemas"},
		TeamMembers:             newCRUD(s, "TeamMembers"),
		UserProfile:             &UserProfileService{session: s, path: apiPrefix + "UserProfile"},
		Vulnerabilities:         &VulnerabilitiesService{session: s, path: apiPrefix + "Vulnerabilities"},
		VulnerabilityExceptions: newCRUD(s, "VulnerabilityExceptions"),
	}
}
