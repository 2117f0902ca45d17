package gworkspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "gworkspace"

// gworkspaceConnector resolves identifiers against a Google Workspace domain
// through the Admin SDK Directory API. Access uses a service account with
// domain-wide delegation, impersonating admin_email. Suspended and archived
// accounts count as absent.
type gworkspaceConnector struct {
	*models.BaseConnector

	service    *admin.Service
	domain     string
	adminEmail string
	pageSize   int64
}

func (c *gworkspaceConnector) Initialize(config *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "Google Workspace", config,
		models.CapabilityExistence,
		models.CapabilityEnumeration,
		models.CapabilityDetails,
	)

	c.domain, _ = config.GetString("domain")
	c.adminEmail, _ = config.GetString("admin_email")
	c.pageSize = int64(config.GetIntWithDefault("page_size", 500))

	keyData, err := resolveKey(config)
	if err != nil {
		return err
	}
	if keyData == nil || len(c.adminEmail) == 0 {
		return nil
	}

	// Domain-wide delegation requires a JWT config with the admin subject
	conf, err := google.JWTConfigFromJSON(keyData, admin.AdminDirectoryUserReadonlyScope)
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}
	conf.Subject = c.adminEmail

	ctx := context.Background()
	service, err := admin.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return fmt.Errorf("failed to create admin service: %w", err)
	}
	c.service = service

	return nil
}

func resolveKey(config *models.BasicConfig) ([]byte, error) {
	if inline, found := config.GetString("service_account_key"); found {
		return []byte(inline), nil
	}
	path, found := config.GetString("service_account_key_path")
	if !found {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}
	return data, nil
}

func (c *gworkspaceConnector) ValidateConfig() error {
	if c.service == nil {
		return fmt.Errorf("%w: service_account_key_path, domain and admin_email are required", models.ErrInvalidConfig)
	}
	if len(c.domain) == 0 {
		return fmt.Errorf("%w: domain is required", models.ErrInvalidConfig)
	}
	return nil
}

func (c *gworkspaceConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	user, err := c.getUser(ctx, identifier)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return !user.Suspended && !user.Archived, nil
}

func (c *gworkspaceConnector) ListUsers(ctx context.Context) ([]string, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	var identifiers []string
	token := ""
	for {
		call := c.service.Users.List().Domain(c.domain).MaxResults(c.pageSize).Context(ctx)
		if len(token) > 0 {
			call = call.PageToken(token)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		for _, user := range page.Users {
			if user.Suspended || user.Archived || len(user.PrimaryEmail) == 0 {
				continue
			}
			identifiers = append(identifiers, strings.ToLower(user.PrimaryEmail))
		}

		token = page.NextPageToken
		if len(token) == 0 {
			break
		}
	}

	return identifiers, nil
}

func (c *gworkspaceConnector) GetUserDetails(ctx context.Context, identifier string) (*models.UserDetails, error) {
	user, err := c.getUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	status := "active"
	switch {
	case user.Suspended:
		status = "suspended"
	case user.Archived:
		status = "archived"
	}

	details := &models.UserDetails{
		Username: strings.ToLower(user.PrimaryEmail),
		Email:    strings.ToLower(user.PrimaryEmail),
		Status:   status,
		SourceID: user.Id,
		Source:   ConnectorID,
	}
	if user.Name != nil {
		details.Name = user.Name.FullName
		details.FirstName = user.Name.GivenName
		details.LastName = user.Name.FamilyName
	}
	return details, nil
}

// getUser fetches a single user by email or unique id. Returns nil without
// error when the directory has no such user.
func (c *gworkspaceConnector) getUser(ctx context.Context, identifier string) (*admin.User, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	user, err := c.service.Users.Get(identifier).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func init() {
	connectors.Register(ConnectorID, &gworkspaceConnector{})
}
