package slack

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/slack-go/slack"

	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "slack"

// slackConnector resolves identifiers against a Slack workspace. Lookups go
// through users.lookupByEmail, so identifiers are expected to be email
// addresses. Deleted members count as absent.
type slackConnector struct {
	*models.BaseConnector
	client *slack.Client
}

func (c *slackConnector) Initialize(config *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "Slack", config,
		models.CapabilityExistence,
		models.CapabilityEnumeration,
		models.CapabilityDetails,
	)

	token, err := resolveToken(config)
	if err != nil {
		return err
	}
	if len(token) > 0 {
		c.client = slack.New(token)
	}

	return nil
}

// resolveToken prefers the inline bot_token and falls back to token_file,
// the drop-a-file-next-to-the-binary convention older deployments use.
func resolveToken(config *models.BasicConfig) (string, error) {
	if token, found := config.GetString("bot_token"); found {
		return token, nil
	}
	path, found := config.GetString("token_file")
	if !found {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token_file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *slackConnector) ValidateConfig() error {
	if c.client == nil {
		return fmt.Errorf("%w: bot_token or token_file is required", models.ErrInvalidConfig)
	}
	return nil
}

func (c *slackConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	user, err := c.lookupByEmail(ctx, identifier)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return !user.Deleted, nil
}

func (c *slackConnector) ListUsers(ctx context.Context) ([]string, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	users, err := c.client.GetUsersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	emails := make([]string, 0, len(users))
	for _, user := range users {
		if user.Deleted || len(user.Profile.Email) == 0 {
			continue
		}
		emails = append(emails, strings.ToLower(user.Profile.Email))
	}
	return emails, nil
}

func (c *slackConnector) GetUserDetails(ctx context.Context, identifier string) (*models.UserDetails, error) {
	user, err := c.lookupByEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	status := "active"
	if user.Deleted {
		status = "deleted"
	}

	return &models.UserDetails{
		Username:    user.Name,
		Email:       strings.ToLower(user.Profile.Email),
		Name:        user.RealName,
		FirstName:   user.Profile.FirstName,
		LastName:    user.Profile.LastName,
		DisplayName: user.Profile.DisplayName,
		Title:       user.Profile.Title,
		Phone:       user.Profile.Phone,
		Status:      status,
		AccountType: accountType(user),
		SourceID:    user.ID,
		Source:      ConnectorID,
	}, nil
}

func (c *slackConnector) lookupByEmail(ctx context.Context, identifier string) (*slack.User, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	user, err := c.client.GetUserByEmailContext(ctx, identifier)
	if err != nil {
		if strings.Contains(err.Error(), "users_not_found") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// accountType classifies a member the way the workspace admin view does.
// Order matters, a primary owner also carries the owner and admin flags.
func accountType(user *slack.User) string {
	switch {
	case user.IsBot:
		return "Bot"
	case user.IsPrimaryOwner:
		return "Primary Owner"
	case user.IsOwner:
		return "Owner"
	case user.IsAdmin:
		return "Admin"
	case user.IsUltraRestricted:
		return "Single-Channel Guest"
	case user.IsRestricted:
		return "Multi-Channel Guest"
	default:
		return "Member"
	}
}

func init() {
	connectors.Register(ConnectorID, &slackConnector{})
}
