package hrfeed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "hrfeed"

// hrfeedConnector checks identifiers against a CSV export of the HR roster.
// The feed either carries addresses directly in email_column, or first/last
// name columns from which addresses are synthesized as
// {first initial}{last name}@{email_domain}, the convention HR exports use.
// The parsed identifier set is built once per instance and cached.
type hrfeedConnector struct {
	*models.BaseConnector

	path            string
	emailColumn     string
	firstNameColumn string
	lastNameColumn  string
	emailDomain     string
	hasHeader       bool

	loadOnce sync.Once
	loadErr  error
	users    []string
	userSet  map[string]struct{}
}

func (c *hrfeedConnector) Initialize(config *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "HR Feed", config,
		models.CapabilityExistence,
		models.CapabilityEnumeration,
	)

	c.path, _ = config.GetString("path")
	c.emailColumn, _ = config.GetString("email_column")
	c.firstNameColumn = config.GetStringWithDefault("first_name_column", "FirstName")
	c.lastNameColumn = config.GetStringWithDefault("last_name_column", "LastName")
	c.emailDomain, _ = config.GetString("email_domain")
	c.hasHeader = config.GetBoolWithDefault("has_header", true)

	return nil
}

func (c *hrfeedConnector) ValidateConfig() error {
	if len(c.path) == 0 {
		return fmt.Errorf("%w: path is required", models.ErrInvalidConfig)
	}
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("%w: feed file not readable: %v", models.ErrInvalidConfig, err)
	}
	if len(c.emailColumn) == 0 && len(c.emailDomain) == 0 {
		return fmt.Errorf("%w: either email_column or email_domain is required", models.ErrInvalidConfig)
	}
	return nil
}

func (c *hrfeedConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	if err := c.load(); err != nil {
		return false, err
	}
	_, found := c.userSet[common.NormalizeIdentifier(identifier)]
	return found, nil
}

func (c *hrfeedConnector) ListUsers(ctx context.Context) ([]string, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	return slices.Clone(c.users), nil
}

func (c *hrfeedConnector) load() error {
	c.loadOnce.Do(func() {
		if err := c.ValidateConfig(); err != nil {
			c.loadErr = err
			return
		}

		file, err := os.Open(c.path)
		if err != nil {
			c.loadErr = fmt.Errorf("failed to open feed: %w", err)
			return
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			c.loadErr = fmt.Errorf("failed to parse feed: %w", err)
			return
		}

		emailIdx, firstIdx, lastIdx := c.resolveColumns(rows)

		set := make(map[string]struct{})
		users := make([]string, 0, len(rows))
		for i, row := range rows {
			if c.hasHeader && i == 0 {
				continue
			}
			email := c.rowEmail(row, emailIdx, firstIdx, lastIdx)
			if len(email) == 0 {
				continue
			}
			if _, ok := set[email]; ok {
				continue
			}
			set[email] = struct{}{}
			users = append(users, email)
		}

		c.userSet = set
		c.users = common.SortIdentifiers(users)

		logrus.WithFields(logrus.Fields{
			"path":  c.path,
			"users": len(c.users),
		}).Debug("Loaded HR feed")
	})
	return c.loadErr
}

// resolveColumns maps the configured column names onto indexes. Header cells
// are matched ignoring case and surrounding whitespace since HR exports are
// rarely tidy. Without a header the first column is the email column, or the
// first two columns are first/last name.
func (c *hrfeedConnector) resolveColumns(rows [][]string) (emailIdx, firstIdx, lastIdx int) {
	emailIdx, firstIdx, lastIdx = -1, -1, -1

	if !c.hasHeader || len(rows) == 0 {
		if len(c.emailColumn) > 0 {
			emailIdx = 0
		} else {
			firstIdx, lastIdx = 0, 1
		}
		return
	}

	for i, cell := range rows[0] {
		name := strings.TrimSpace(cell)
		switch {
		case len(c.emailColumn) > 0 && strings.EqualFold(name, c.emailColumn):
			emailIdx = i
		case strings.EqualFold(name, c.firstNameColumn):
			firstIdx = i
		case strings.EqualFold(name, c.lastNameColumn):
			lastIdx = i
		}
	}
	return
}

func (c *hrfeedConnector) rowEmail(row []string, emailIdx, firstIdx, lastIdx int) string {
	if emailIdx >= 0 {
		if emailIdx >= len(row) {
			return ""
		}
		return common.NormalizeIdentifier(row[emailIdx])
	}

	if firstIdx < 0 || lastIdx < 0 || firstIdx >= len(row) || lastIdx >= len(row) {
		return ""
	}
	first := strings.TrimSpace(row[firstIdx])
	last := strings.TrimSpace(row[lastIdx])
	if len(first) == 0 || len(last) == 0 {
		return ""
	}
	return strings.ToLower(first[:1] + last + "@" + c.emailDomain)
}

func init() {
	connectors.Register(ConnectorID, &hrfeedConnector{})
}
