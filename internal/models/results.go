package models

import "time"

// VerifyRequest is the body of a verification call: the identifiers to check
// across every configured source.
type VerifyRequest struct {
	Users []string `json:"users"`
}

// VerificationResult is the identifier × source existence grid for an
// explicit list of identifiers.
type VerificationResult struct {
	Users     []string                   `json:"users"`
	Sources   []string                   `json:"sources"`
	Results   map[string]map[string]bool `json:"results"`
	Timestamp time.Time                  `json:"timestamp"`
}

// ComparisonResult is the consolidated group × source view over every
// enumerable source. AllUsers holds consolidated group ids sorted
// case-insensitively; Sources holds only sources that produced data;
// SourceCounts is computed over the consolidated matrix so a group counts
// once per source.
type ComparisonResult struct {
	AllUsers     []string                   `json:"all_users"`
	Sources      []string                   `json:"sources"`
	UserSources  map[string]map[string]bool `json:"user_sources"`
	SourceCounts map[string]int             `json:"source_counts"`
	Groups       map[string]GroupView       `json:"groups"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// SourceDetails is one source's contribution to a detail lookup. Error is set
// when the source failed or refused; Found distinguishes "checked, absent"
// from "unavailable".
type SourceDetails struct {
	Source  string       `json:"source"`
	Found   bool         `json:"found"`
	Details *UserDetails `json:"details,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// UserDetailsResult is the per-source detail fan-out for one identifier.
type UserDetailsResult struct {
	Identifier string                   `json:"identifier"`
	Sources    map[string]SourceDetails `json:"sources"`
	Timestamp  time.Time                `json:"timestamp"`
}

// DirectoryUser is one row of the full directory listing: a consolidated
// identifier, its per-source presence, and any details sources returned.
type DirectoryUser struct {
	Username string                  `json:"username"`
	Sources  map[string]bool         `json:"sources"`
	Details  map[string]*UserDetails `json:"details,omitempty"`
}

// DirectoryResult is the full directory listing across enumerable sources.
type DirectoryResult struct {
	Users     []DirectoryUser `json:"users"`
	Sources   []string        `json:"sources"`
	Timestamp time.Time       `json:"timestamp"`
}

// MergeRequest merges two or more identifiers into one alias group.
type MergeRequest struct {
	Emails      []string `json:"emails"`
	DisplayName string   `json:"display_name"`
}

// MergeResponse reports the group the identifiers were folded into.
type MergeResponse struct {
	GroupID string `json:"group_id"`
}

// SplitRequest removes members from a group, keeping only EmailsToKeep. An
// empty keep-list deletes the group.
type SplitRequest struct {
	GroupID      string   `json:"group_id"`
	EmailsToKeep []string `json:"emails_to_keep"`
}

// GroupsResponse is the persisted grouping snapshot.
type GroupsResponse struct {
	Version string               `json:"version"`
	Groups  map[string]GroupView `json:"groups"`
}

// UploadResult reports the identifiers parsed out of an uploaded CSV.
type UploadResult struct {
	UserCount int      `json:"user_count"`
	Users     []string `json:"users"`
	Message   string   `json:"message"`
}

// ConnectorInfo describes one registered connector for diagnostics.
type ConnectorInfo struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Capabilities []ConnectorCapability `json:"capabilities"`
	Configured   bool                  `json:"configured"`
}

// ConnectorsResponse lists every registered connector.
type ConnectorsResponse struct {
	Version    string                   `json:"version"`
	Connectors map[string]ConnectorInfo `json:"connectors"`
}

// ErrorResponse is the JSON error body returned by the HTTP API.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

type HealthState string

const (
	HealthStatusHealthy     HealthState = "healthy"
	HealthStatusDegraded    HealthState = "degraded"
	HealthStatusUnavailable HealthState = "unavailable"
)

// HealthResponse reports service health plus the availability of each
// identity source.
type HealthResponse struct {
	Status      HealthState            `json:"status"`
	ApiBasePath string                 `json:"api_base_path"`
	Timestamp   string                 `json:"timestamp"`
	Version     string                 `json:"version"`
	Sources     map[string]HealthState `json:"sources,omitempty"`
}

// MetricsInfo carries the operational counters exposed on the metrics
// endpoint.
type MetricsInfo struct {
	Uptime          string `json:"uptime"`
	TotalRequests   int64  `json:"total_requests"`
	VerifyRequests  int64  `json:"verify_requests"`
	ConnectorsCount int    `json:"connectors_count"`
	GroupsCount     int    `json:"groups_count"`
}
