package okta

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/okta/okta-sdk-golang/v2/okta"
	"github.com/okta/okta-sdk-golang/v2/okta/query"
	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "okta"

// oktaConnector resolves identifiers against an Okta organization. Lookups
// search both profile.email and profile.login, and only ACTIVE users count
// as present.
type oktaConnector struct {
	*models.BaseConnector

	client   *okta.Client
	pageSize int64
}

func (c *oktaConnector) Initialize(config *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "Okta", config,
		models.CapabilityExistence,
		models.CapabilityEnumeration,
		models.CapabilityDetails,
	)

	c.pageSize = int64(config.GetIntWithDefault("page_size", 200))

	orgURL, foundURL := config.GetString("org_url")
	apiToken, foundToken := config.GetString("api_token")
	if !foundURL || !foundToken {
		return nil
	}

	_, client, err := okta.NewClient(context.Background(),
		okta.WithOrgUrl(orgURL),
		okta.WithToken(apiToken),
		okta.WithCache(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create Okta client: %w", err)
	}
	c.client = client

	return nil
}

func (c *oktaConnector) ValidateConfig() error {
	if c.client == nil {
		return fmt.Errorf("%w: org_url and api_token are required", models.ErrInvalidConfig)
	}
	return nil
}

func (c *oktaConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	user, err := c.findUser(ctx, identifier)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return user.Status == "ACTIVE", nil
}

func (c *oktaConnector) ListUsers(ctx context.Context) ([]string, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	var identifiers []string
	queryParams := &query.Params{Limit: c.pageSize}
	for {
		users, resp, err := c.client.User.ListUsers(ctx, queryParams)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		for _, user := range users {
			email := profileString(user, "email")
			if len(email) == 0 {
				email = profileString(user, "login")
			}
			if len(email) > 0 {
				identifiers = append(identifiers, strings.ToLower(email))
			}
		}

		if len(resp.NextPage) == 0 {
			break
		}
		token := nextTokenFromResponse(resp)
		if len(token) == 0 {
			break
		}
		queryParams = &query.Params{Limit: c.pageSize, After: token}
	}

	return identifiers, nil
}

func (c *oktaConnector) GetUserDetails(ctx context.Context, identifier string) (*models.UserDetails, error) {
	user, err := c.findUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	firstName := profileString(user, "firstName")
	lastName := profileString(user, "lastName")
	name := strings.TrimSpace(firstName + " " + lastName)

	return &models.UserDetails{
		Username:   profileString(user, "login"),
		Email:      strings.ToLower(profileString(user, "email")),
		Name:       name,
		FirstName:  firstName,
		LastName:   lastName,
		Title:      profileString(user, "title"),
		Department: profileString(user, "department"),
		Phone:      profileString(user, "mobilePhone"),
		Status:     strings.ToLower(user.Status),
		SourceID:   user.Id,
		Source:     ConnectorID,
	}, nil
}

// findUser searches for the identifier as either email or login. Returns nil
// without error when no user matches.
func (c *oktaConnector) findUser(ctx context.Context, identifier string) (*okta.User, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	escaped := strings.ReplaceAll(identifier, `"`, `\"`)
	search := fmt.Sprintf(`profile.email eq "%s" or profile.login eq "%s"`, escaped, escaped)

	users, _, err := c.client.User.ListUsers(ctx, &query.Params{Search: search, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func profileString(user *okta.User, key string) string {
	if user.Profile == nil {
		return ""
	}
	if value, ok := (*user.Profile)[key].(string); ok {
		return value
	}
	return ""
}

func nextTokenFromResponse(resp *okta.Response) string {
	nextPageURL, err := url.Parse(resp.NextPage)
	if err != nil {
		logrus.Warnf("Failed to parse next page URL: %v", err)
		return ""
	}
	return nextPageURL.Query().Get("after")
}

func init() {
	connectors.Register(ConnectorID, &oktaConnector{})
}
