package entra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	graphusers "github.com/microsoftgraph/msgraph-sdk-go/users"

	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "entra"

var graphScopes = []string{"https://graph.microsoft.com/.default"}

var userSelect = []string{
	"id", "displayName", "givenName", "surname", "mail",
	"userPrincipalName", "jobTitle", "department", "mobilePhone", "accountEnabled",
}

// entraConnector resolves identifiers against a Microsoft Entra ID tenant
// through the Microsoft Graph API. Identifiers are passed through as either
// userPrincipalName or object id, which is what the users/{id} endpoint
// accepts. Disabled accounts count as absent.
type entraConnector struct {
	*models.BaseConnector

	client   *msgraphsdk.GraphServiceClient
	pageSize int32
}

func (c *entraConnector) Initialize(config *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "Microsoft Entra ID", config,
		models.CapabilityExistence,
		models.CapabilityEnumeration,
		models.CapabilityDetails,
	)

	c.pageSize = int32(config.GetIntWithDefault("page_size", 500))

	tenantID, foundTenant := config.GetString("tenant_id")
	clientID, foundClient := config.GetString("client_id")
	clientSecret, foundSecret := config.GetString("client_secret")
	if !foundTenant || !foundClient || !foundSecret {
		return nil
	}

	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return fmt.Errorf("failed to create Azure credential: %w", err)
	}
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, graphScopes)
	if err != nil {
		return fmt.Errorf("failed to create Microsoft Graph client: %w", err)
	}
	c.client = client

	return nil
}

func (c *entraConnector) ValidateConfig() error {
	if c.client == nil {
		return fmt.Errorf("%w: tenant_id, client_id and client_secret are required", models.ErrInvalidConfig)
	}
	return nil
}

func (c *entraConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	user, err := c.getUser(ctx, identifier)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	enabled := user.GetAccountEnabled()
	return enabled == nil || *enabled, nil
}

func (c *entraConnector) ListUsers(ctx context.Context) ([]string, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	requestConfig := &graphusers.UsersRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphusers.UsersRequestBuilderGetQueryParameters{
			Select: userSelect,
			Top:    &c.pageSize,
		},
	}
	result, err := c.client.Users().Get(ctx, requestConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	pageIterator, err := msgraphcore.NewPageIterator[graphmodels.Userable](
		result, c.client.GetAdapter(), graphmodels.CreateUserCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("failed to create page iterator: %w", err)
	}

	var identifiers []string
	err = pageIterator.Iterate(ctx, func(user graphmodels.Userable) bool {
		if enabled := user.GetAccountEnabled(); enabled != nil && !*enabled {
			return true
		}
		email := deref(user.GetMail())
		if len(email) == 0 {
			email = deref(user.GetUserPrincipalName())
		}
		if len(email) > 0 {
			identifiers = append(identifiers, strings.ToLower(email))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to page users: %w", err)
	}

	return identifiers, nil
}

func (c *entraConnector) GetUserDetails(ctx context.Context, identifier string) (*models.UserDetails, error) {
	user, err := c.getUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	status := "active"
	if enabled := user.GetAccountEnabled(); enabled != nil && !*enabled {
		status = "disabled"
	}

	email := deref(user.GetMail())
	if len(email) == 0 {
		email = deref(user.GetUserPrincipalName())
	}

	return &models.UserDetails{
		Username:    deref(user.GetUserPrincipalName()),
		Email:       strings.ToLower(email),
		FirstName:   deref(user.GetGivenName()),
		LastName:    deref(user.GetSurname()),
		DisplayName: deref(user.GetDisplayName()),
		Title:       deref(user.GetJobTitle()),
		Department:  deref(user.GetDepartment()),
		Phone:       deref(user.GetMobilePhone()),
		Status:      status,
		SourceID:    deref(user.GetId()),
		Source:      ConnectorID,
	}, nil
}

// getUser fetches a single user via GET /users/{id}. Returns nil without
// error when the tenant has no such user.
func (c *entraConnector) getUser(ctx context.Context, identifier string) (graphmodels.Userable, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	requestConfig := &graphusers.UserItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphusers.UserItemRequestBuilderGetQueryParameters{
			Select: userSelect,
		},
	}
	user, err := c.client.Users().ByUserId(identifier).Get(ctx, requestConfig)
	if err != nil {
		var odataErr *odataerrors.ODataError
		if errors.As(err, &odataErr) && odataErr.ResponseStatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lookup user in Microsoft Graph: %w", err)
	}
	return user, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func init() {
	connectors.Register(ConnectorID, &entraConnector{})
}
