package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "rest"

// restConnector probes a JSON HTTP API for user existence. A 2xx on the
// per-user path means the identifier exists, a 404 means it does not, and
// anything else is reported as a source failure. Enumeration is available
// when users_path is configured.
type restConnector struct {
	*models.BaseConnector

	client     *resty.Client
	userPath   string
	usersPath  string
	usersField string
}

func (c *restConnector) Initialize(config *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "REST API", config,
		models.CapabilityExistence,
		models.CapabilityEnumeration,
	)

	c.userPath = config.GetStringWithDefault("user_path", "/users/{username}")
	c.usersPath, _ = config.GetString("users_path")
	c.usersField = config.GetStringWithDefault("users_field", "users")

	baseURL, found := config.GetString("base_url")
	if !found {
		return nil
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(config.GetDurationWithDefault("timeout", 10*time.Second))
	if token, ok := config.GetString("auth_token"); ok {
		client.SetAuthToken(token)
	}
	if headers, ok := config.GetMap("headers"); ok {
		for name, value := range headers {
			if text, ok := value.(string); ok {
				client.SetHeader(name, text)
			}
		}
	}
	c.client = client

	return nil
}

func (c *restConnector) ValidateConfig() error {
	baseURL, found := c.GetConfig().GetString("base_url")
	if !found {
		return fmt.Errorf("%w: base_url is required", models.ErrInvalidConfig)
	}
	if !common.IsValidURL(baseURL) {
		return fmt.Errorf("%w: base_url %q is not a valid URL", models.ErrInvalidConfig, baseURL)
	}
	return nil
}

func (c *restConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("%w: connector is not configured", models.ErrInvalidConfig)
	}

	path := strings.ReplaceAll(c.userPath, "{username}", url.PathEscape(identifier))
	resp, err := c.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return false, nil
	case resp.IsSuccess():
		return true, nil
	default:
		return false, fmt.Errorf("unexpected status %s checking user", resp.Status())
	}
}

func (c *restConnector) ListUsers(ctx context.Context) ([]string, error) {
	if c.client == nil {
		return nil, fmt.Errorf("%w: connector is not configured", models.ErrInvalidConfig)
	}
	if len(c.usersPath) == 0 {
		return nil, models.ErrNotSupported
	}

	resp, err := c.client.R().SetContext(ctx).Get(c.usersPath)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %s listing users", resp.Status())
	}

	return decodeUserList(resp.Body(), c.usersField)
}

// decodeUserList accepts either a bare JSON array or an object whose field
// holds the array. Entries are plain strings, or objects carrying an email
// or username key.
func decodeUserList(body []byte, field string) ([]string, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode user list: %w", err)
	}

	items := payload
	if wrapper, ok := payload.(map[string]any); ok {
		items = wrapper[field]
	}

	list, ok := items.([]any)
	if !ok {
		return nil, fmt.Errorf("user list field %q is not an array", field)
	}

	users := make([]string, 0, len(list))
	for _, item := range list {
		switch entry := item.(type) {
		case string:
			users = append(users, common.NormalizeIdentifier(entry))
		case map[string]any:
			if email, ok := entry["email"].(string); ok && len(email) > 0 {
				users = append(users, common.NormalizeIdentifier(email))
			} else if username, ok := entry["username"].(string); ok && len(username) > 0 {
				users = append(users, common.NormalizeIdentifier(username))
			}
		}
	}
	return common.FilterEmpty(users...), nil
}

func init() {
	connectors.Register(ConnectorID, &restConnector{})
}
