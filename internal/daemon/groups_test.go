package daemon

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idsweep-io/idsweep/internal/models"
)

func TestGroupLifecycle(t *testing.T) {
	_, router := newTestServer(t, nil)

	// starts empty
	w := performRequest(router, http.MethodGet, "/api/v1/groups", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	groups := decodeResponse[models.GroupsResponse](t, w)
	assert.Equal(t, "1.0", groups.Version)
	assert.Empty(t, groups.Groups)

	// merge two identifiers
	body := strings.NewReader(`{"emails": ["Alice@X.com", "bob@x.com"], "display_name": "Alice"}`)
	w = performRequest(router, http.MethodPost, "/api/v1/groups/merge", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	merged := decodeResponse[models.MergeResponse](t, w)
	assert.Equal(t, "alice@x.com", merged.GroupID)

	// group is listed
	w = performRequest(router, http.MethodGet, "/api/v1/groups", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	groups = decodeResponse[models.GroupsResponse](t, w)
	require.Contains(t, groups.Groups, "alice@x.com")
	assert.ElementsMatch(t, []string{"alice@x.com", "bob@x.com"}, groups.Groups["alice@x.com"].Members)
	assert.Equal(t, "Alice", groups.Groups["alice@x.com"].DisplayName)

	// splitting down to one member collapses the group
	body = strings.NewReader(`{"group_id": "alice@x.com", "emails_to_keep": ["alice@x.com"]}`)
	w = performRequest(router, http.MethodPost, "/api/v1/groups/split", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"group_id":"alice@x.com"`)

	w = performRequest(router, http.MethodGet, "/api/v1/groups", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	groups = decodeResponse[models.GroupsResponse](t, w)
	assert.Empty(t, groups.Groups)
}

func TestPostMergeUsers_RequiresTwoIdentifiers(t *testing.T) {
	_, router := newTestServer(t, nil)

	body := strings.NewReader(`{"emails": ["only@x.com"]}`)
	w := performRequest(router, http.MethodPost, "/api/v1/groups/merge", body, "application/json")
	require.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse[models.ErrorResponse](t, w)
	assert.Equal(t, "Merge requires at least two identifiers", response.Title)
}

func TestPostMergeUsers_MalformedBody(t *testing.T) {
	_, router := newTestServer(t, nil)

	w := performRequest(router, http.MethodPost, "/api/v1/groups/merge", strings.NewReader(`{`), "application/json")
	require.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse[models.ErrorResponse](t, w)
	assert.Equal(t, "Invalid request payload", response.Title)
}

func TestPostSplitGroup_UnknownGroup(t *testing.T) {
	_, router := newTestServer(t, nil)

	body := strings.NewReader(`{"group_id": "ghost@x.com", "emails_to_keep": []}`)
	w := performRequest(router, http.MethodPost, "/api/v1/groups/split", body, "application/json")
	require.Equal(t, http.StatusNotFound, w.Code)

	response := decodeResponse[models.ErrorResponse](t, w)
	assert.Equal(t, "Group not found", response.Title)
}

func TestPostSplitGroup_MissingGroupID(t *testing.T) {
	_, router := newTestServer(t, nil)

	body := strings.NewReader(`{"emails_to_keep": ["a@x.com"]}`)
	w := performRequest(router, http.MethodPost, "/api/v1/groups/split", body, "application/json")
	require.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse[models.ErrorResponse](t, w)
	assert.Equal(t, "No group id provided", response.Title)
}
