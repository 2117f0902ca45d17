package ldap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "ldap"

// bit 2 of userAccountControl on Active Directory entries
const accountDisabled = 0x2

const defaultUserFilter = "(|(mail=%s)(userPrincipalName=%s)(sAMAccountName=%s)(uid=%s))"
const defaultListFilter = "(|(objectClass=user)(objectClass=inetOrgPerson))"

// Tried in order for each listed entry; the first non-empty value becomes the
// identifier. Overridable through list_attributes.
var defaultListAttributes = []string{"mail", "userPrincipalName", "uid"}

var detailAttributes = []string{
	"mail", "displayName", "givenName", "sn", "title", "department",
	"telephoneNumber", "userAccountControl", "sAMAccountName", "userPrincipalName", "uid",
}

// ldapConnector resolves identifiers against an LDAP directory, including
// Active Directory. Each operation dials a fresh connection; entries whose
// userAccountControl carries the disabled bit count as absent.
type ldapConnector struct {
	*models.BaseConnector

	url            string
	bindDN         string
	bindPassword   string
	baseDN         string
	userFilter     string
	listFilter     string
	listAttributes []string
	pageSize       int
}

func (c *ldapConnector) Initialize(config *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "LDAP Directory", config,
		models.CapabilityExistence,
		models.CapabilityEnumeration,
		models.CapabilityDetails,
	)

	c.url, _ = config.GetString("url")
	c.bindDN, _ = config.GetString("bind_dn")
	c.bindPassword, _ = config.GetString("bind_password")
	c.baseDN, _ = config.GetString("base_dn")
	c.userFilter = config.GetStringWithDefault("user_filter", defaultUserFilter)
	c.listFilter = config.GetStringWithDefault("list_filter", defaultListFilter)
	c.listAttributes = defaultListAttributes
	if attributes, ok := config.GetStringSlice("list_attributes"); ok && len(attributes) > 0 {
		c.listAttributes = attributes
	}
	c.pageSize = config.GetIntWithDefault("page_size", 500)

	return nil
}

func (c *ldapConnector) ValidateConfig() error {
	if len(c.url) == 0 {
		return fmt.Errorf("%w: url is required", models.ErrInvalidConfig)
	}
	if len(c.baseDN) == 0 {
		return fmt.Errorf("%w: base_dn is required", models.ErrInvalidConfig)
	}
	if (len(c.bindDN) == 0) != (len(c.bindPassword) == 0) {
		return fmt.Errorf("%w: bind_dn and bind_password must be set together", models.ErrInvalidConfig)
	}
	return nil
}

func (c *ldapConnector) connect(ctx context.Context) (*ldap.Conn, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}

	conn, err := ldap.DialURL(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	}

	if len(c.bindDN) > 0 {
		err = conn.Bind(c.bindDN, c.bindPassword)
	} else {
		err = conn.UnauthenticatedBind("")
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind failed: %w", err)
	}
	return conn, nil
}

func (c *ldapConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	entry, err := c.findUser(ctx, identifier, []string{"userAccountControl"})
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return !entryDisabled(entry), nil
}

func (c *ldapConnector) ListUsers(ctx context.Context) ([]string, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	request := ldap.NewSearchRequest(
		c.baseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		c.listFilter, c.listAttributes, nil,
	)
	result, err := conn.SearchWithPaging(request, uint32(c.pageSize))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	users := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		for _, attribute := range c.listAttributes {
			if identifier := entry.GetAttributeValue(attribute); len(identifier) > 0 {
				users = append(users, common.NormalizeIdentifier(identifier))
				break
			}
		}
	}
	return users, nil
}

func (c *ldapConnector) GetUserDetails(ctx context.Context, identifier string) (*models.UserDetails, error) {
	entry, err := c.findUser(ctx, identifier, detailAttributes)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	status := "active"
	if entryDisabled(entry) {
		status = "disabled"
	}
	username := entry.GetAttributeValue("sAMAccountName")
	if len(username) == 0 {
		username = entry.GetAttributeValue("uid")
	}

	return &models.UserDetails{
		Username:    username,
		Email:       strings.ToLower(entry.GetAttributeValue("mail")),
		FirstName:   entry.GetAttributeValue("givenName"),
		LastName:    entry.GetAttributeValue("sn"),
		DisplayName: entry.GetAttributeValue("displayName"),
		Title:       entry.GetAttributeValue("title"),
		Department:  entry.GetAttributeValue("department"),
		Phone:       entry.GetAttributeValue("telephoneNumber"),
		Status:      status,
		SourceID:    entry.DN,
		Source:      ConnectorID,
	}, nil
}

// findUser runs the configured user filter with the identifier substituted
// into every %s placeholder, escaped per RFC 4515. Returns nil without error
// when no entry matches.
func (c *ldapConnector) findUser(ctx context.Context, identifier string, attributes []string) (*ldap.Entry, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	filter := strings.ReplaceAll(c.userFilter, "%s", ldap.EscapeFilter(identifier))
	request := ldap.NewSearchRequest(
		c.baseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		filter, attributes, nil,
	)

	result, err := conn.Search(request)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if result == nil || len(result.Entries) == 0 {
		return nil, nil
	}
	return result.Entries[0], nil
}

func entryDisabled(entry *ldap.Entry) bool {
	raw := entry.GetAttributeValue("userAccountControl")
	if len(raw) == 0 {
		return false
	}
	uac, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	return uac&accountDisabled != 0
}

func init() {
	connectors.Register(ConnectorID, &ldapConnector{})
}
