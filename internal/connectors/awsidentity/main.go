package awsidentity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	identitystoretypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "awsidentity"

// awsIdentityConnector resolves identifiers against AWS IAM Identity Center.
// The identity store id is taken from configuration or discovered once via
// the SSO admin API. Lookups match userName first and fall back to the
// emails.value attribute.
type awsIdentityConnector struct {
	*models.BaseConnector

	identityStore *identitystore.Client
	ssoAdmin      *ssoadmin.Client
	pageSize      int32

	storeOnce sync.Once
	storeID   string
	storeErr  error
}

func (c *awsIdentityConnector) Initialize(cfg *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "AWS Identity Center", cfg,
		models.CapabilityExistence,
		models.CapabilityEnumeration,
		models.CapabilityDetails,
	)

	c.pageSize = int32(cfg.GetIntWithDefault("page_size", 100))
	c.storeID, _ = cfg.GetString("identity_store_id")

	awsOptions := []func(*config.LoadOptions) error{}

	profile, foundProfile := cfg.GetString("profile")
	accessKeyID, foundKeyID := cfg.GetString("access_key_id")
	secretAccessKey, foundSecret := cfg.GetString("secret_access_key")

	if foundProfile {
		awsOptions = append(awsOptions, config.WithSharedConfigProfile(profile))
	} else if foundKeyID && foundSecret {
		awsOptions = append(awsOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	} else {
		logrus.Debug("No AWS credentials provided, using IAM role or default profile")
	}

	awsOptions = append(awsOptions, config.WithRegion(cfg.GetStringWithDefault("region", "us-east-1")))

	// Custom endpoint for testing (e.g., LocalStack)
	if endpoint, found := cfg.GetString("endpoint"); found {
		awsOptions = append(awsOptions, config.WithBaseEndpoint(endpoint))
	}

	awsSdkConfig, err := config.LoadDefaultConfig(context.Background(), awsOptions...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	c.identityStore = identitystore.NewFromConfig(awsSdkConfig)
	c.ssoAdmin = ssoadmin.NewFromConfig(awsSdkConfig)

	return nil
}

// ValidateConfig requires an explicit opt-in key. The AWS credential chain
// happily resolves on any EC2 box, which would otherwise drag this source
// into every aggregation.
func (c *awsIdentityConnector) ValidateConfig() error {
	cfg := c.GetConfig()
	for _, key := range []string{"region", "profile", "access_key_id", "identity_store_id"} {
		if _, found := cfg.GetString(key); found {
			return nil
		}
	}
	return fmt.Errorf("%w: one of region, profile, access_key_id or identity_store_id is required", models.ErrInvalidConfig)
}

func (c *awsIdentityConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	user, err := c.findUser(ctx, identifier)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (c *awsIdentityConnector) ListUsers(ctx context.Context) ([]string, error) {
	storeID, err := c.identityStoreID(ctx)
	if err != nil {
		return nil, err
	}

	var identifiers []string
	input := &identitystore.ListUsersInput{
		IdentityStoreId: aws.String(storeID),
		MaxResults:      aws.Int32(c.pageSize),
	}
	for {
		resp, err := c.identityStore.ListUsers(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		for _, user := range resp.Users {
			identifier := userIdentifier(user)
			if len(identifier) > 0 {
				identifiers = append(identifiers, identifier)
			}
		}

		if resp.NextToken == nil {
			break
		}
		input = &identitystore.ListUsersInput{
			IdentityStoreId: aws.String(storeID),
			MaxResults:      aws.Int32(c.pageSize),
			NextToken:       resp.NextToken,
		}
	}

	return identifiers, nil
}

func (c *awsIdentityConnector) GetUserDetails(ctx context.Context, identifier string) (*models.UserDetails, error) {
	user, err := c.findUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	details := &models.UserDetails{
		Username:    aws.ToString(user.UserName),
		Email:       userEmail(*user),
		DisplayName: aws.ToString(user.DisplayName),
		Title:       aws.ToString(user.Title),
		SourceID:    aws.ToString(user.UserId),
		Source:      ConnectorID,
	}
	if user.Name != nil {
		details.FirstName = aws.ToString(user.Name.GivenName)
		details.LastName = aws.ToString(user.Name.FamilyName)
	}
	return details, nil
}

// findUser searches the identity store by userName and then by email
// attribute. Returns nil without error when neither matches.
func (c *awsIdentityConnector) findUser(ctx context.Context, identifier string) (*identitystoretypes.User, error) {
	storeID, err := c.identityStoreID(ctx)
	if err != nil {
		return nil, err
	}

	for _, attributePath := range []string{"userName", "emails.value"} {
		resp, err := c.identityStore.ListUsers(ctx, &identitystore.ListUsersInput{
			IdentityStoreId: aws.String(storeID),
			Filters: []identitystoretypes.Filter{
				{
					AttributePath:  aws.String(attributePath),
					AttributeValue: aws.String(identifier),
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search users: %w", err)
		}
		if len(resp.Users) > 0 {
			return &resp.Users[0], nil
		}
	}

	return nil, nil
}

// identityStoreID resolves the store id once per instance, discovering it
// through the first Identity Center instance when not configured.
func (c *awsIdentityConnector) identityStoreID(ctx context.Context) (string, error) {
	if err := c.ValidateConfig(); err != nil {
		return "", err
	}

	c.storeOnce.Do(func() {
		if len(c.storeID) > 0 {
			return
		}
		resp, err := c.ssoAdmin.ListInstances(ctx, &ssoadmin.ListInstancesInput{})
		if err != nil {
			c.storeErr = fmt.Errorf("failed to list Identity Center instances: %w", err)
			return
		}
		if len(resp.Instances) == 0 || resp.Instances[0].IdentityStoreId == nil {
			c.storeErr = fmt.Errorf("no Identity Center instance found")
			return
		}
		c.storeID = *resp.Instances[0].IdentityStoreId
	})
	return c.storeID, c.storeErr
}

func userIdentifier(user identitystoretypes.User) string {
	if email := userEmail(user); len(email) > 0 {
		return email
	}
	return strings.ToLower(aws.ToString(user.UserName))
}

func userEmail(user identitystoretypes.User) string {
	for _, email := range user.Emails {
		if email.Value != nil && len(*email.Value) > 0 {
			return strings.ToLower(*email.Value)
		}
	}
	return ""
}

func init() {
	connectors.Register(ConnectorID, &awsIdentityConnector{})
}
