// Package aggregate fans identity queries out to every configured connector
// concurrently and fans the independent results back in. One failing source
// never blocks results from the others.
package aggregate

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/models"
)

// DefaultTimeout bounds a single fan-out batch when no explicit timeout is
// configured. The slowest connector can never stall an operation past this.
const DefaultTimeout = 30 * time.Second

// Engine runs fan-out operations over a fixed set of connectors. The
// connector set is captured at construction, once per request, so a batch
// never observes registry mutation mid-operation.
type Engine struct {
	connectors []models.Connector
	timeout    time.Duration
}

type Option func(*Engine)

// WithTimeout sets the per-operation deadline applied to every fan-out
// batch. Zero or negative disables the deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.timeout = timeout
	}
}

func New(connectors []models.Connector, opts ...Option) *Engine {
	e := &Engine{
		connectors: connectors,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// available returns the connectors whose configuration validates. Connectors
// refusing their config are excluded from the operation as unavailable
// sources.
func (e *Engine) available() []models.Connector {
	active := make([]models.Connector, 0, len(e.connectors))
	for _, connector := range e.connectors {
		if err := connector.ValidateConfig(); err != nil {
			logrus.WithError(err).WithField("connector", connector.GetConnectorID()).Debug("Connector configuration invalid, excluding source")
			continue
		}
		active = append(active, connector)
	}
	return active
}

// operationContext derives the per-batch deadline every connector call in the
// batch inherits. On expiry, unfinished connectors fail with the context
// error and are excluded while completed results are still returned.
func (e *Engine) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// CheckUsers issues an existence check for every identifier against every
// available connector concurrently. A connector error records the identifier
// as absent for that source and is logged; the operation itself never fails
// on a source failure.
func (e *Engine) CheckUsers(ctx context.Context, identifiers []string) (*models.VerificationResult, error) {
	normalized := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		if n := common.NormalizeIdentifier(identifier); len(n) > 0 {
			normalized = append(normalized, n)
		}
	}
	normalized = common.UniqueStable(normalized)

	active := e.available()

	ctx, cancel := e.operationContext(ctx)
	defer cancel()

	results := make(map[string]map[string]bool, len(normalized))
	for _, identifier := range normalized {
		results[identifier] = make(map[string]bool, len(active))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, identifier := range normalized {
		for _, connector := range active {
			wg.Add(1)
			go func(identifier string, c models.Connector) {
				defer wg.Done()

				found, err := c.CheckUser(ctx, identifier)
				if err != nil {
					logrus.WithError(err).WithFields(logrus.Fields{
						"connector":  c.GetConnectorID(),
						"identifier": identifier,
					}).Debug("Existence check failed, recording as absent")
					found = false
				}

				mu.Lock()
				results[identifier][c.GetConnectorID()] = found
				mu.Unlock()
			}(identifier, connector)
		}
	}

	wg.Wait()

	return &models.VerificationResult{
		Users:     common.SortIdentifiers(normalized),
		Sources:   connectorIDs(active),
		Results:   results,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Enumeration is the raw outcome of an enumeration fan-out: the sources that
// produced data, their individual identifier lists, the union identifier
// space and the raw presence matrix over it.
type Enumeration struct {
	Sources   []string
	PerSource map[string][]string
	Users     []string
	Matrix    map[string]map[string]bool
}

// EnumerateUsers lists every identifier each connector knows about,
// concurrently. A connector returning models.ErrNotSupported or any other
// error contributes no rows and is not counted as a source with data.
func (e *Engine) EnumerateUsers(ctx context.Context) (*Enumeration, error) {
	active := e.available()

	ctx, cancel := e.operationContext(ctx)
	defer cancel()

	perSource := make(map[string][]string)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, connector := range active {
		wg.Add(1)
		go func(c models.Connector) {
			defer wg.Done()

			users, err := c.ListUsers(ctx)
			if err != nil {
				if errors.Is(err, models.ErrNotSupported) {
					logrus.WithField("connector", c.GetConnectorID()).Debug("Connector does not support enumeration, skipping")
				} else {
					logrus.WithError(err).WithField("connector", c.GetConnectorID()).Warn("Enumeration failed, excluding source")
				}
				return
			}

			normalized := make([]string, 0, len(users))
			for _, user := range users {
				if n := common.NormalizeIdentifier(user); len(n) > 0 {
					normalized = append(normalized, n)
				}
			}
			normalized = common.SortIdentifiers(common.UniqueStable(normalized))

			mu.Lock()
			perSource[c.GetConnectorID()] = normalized
			mu.Unlock()
		}(connector)
	}

	wg.Wait()

	sources := slices.Sorted(maps.Keys(perSource))

	membership := make(map[string]map[string]struct{}, len(sources))
	unionSet := make(map[string]struct{})
	for source, users := range perSource {
		set := make(map[string]struct{}, len(users))
		for _, user := range users {
			set[user] = struct{}{}
			unionSet[user] = struct{}{}
		}
		membership[source] = set
	}

	union := common.SortIdentifiers(slices.Collect(maps.Keys(unionSet)))

	matrix := make(map[string]map[string]bool, len(union))
	for _, user := range union {
		row := make(map[string]bool, len(sources))
		for _, source := range sources {
			_, present := membership[source][user]
			row[source] = present
		}
		matrix[user] = row
	}

	return &Enumeration{
		Sources:   sources,
		PerSource: perSource,
		Users:     union,
		Matrix:    matrix,
	}, nil
}

// DescribeUser fans a detail lookup for one identifier out to every available
// connector. Connectors without detail support fall back to a bare existence
// check; failures are reported per source, never for the operation.
func (e *Engine) DescribeUser(ctx context.Context, identifier string) (*models.UserDetailsResult, error) {
	identifier = common.NormalizeIdentifier(identifier)
	active := e.available()

	ctx, cancel := e.operationContext(ctx)
	defer cancel()

	sources := make(map[string]models.SourceDetails, len(active))

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, connector := range active {
		wg.Add(1)
		go func(c models.Connector) {
			defer wg.Done()

			entry := models.SourceDetails{Source: c.GetDisplayName()}

			details, err := c.GetUserDetails(ctx, identifier)
			switch {
			case errors.Is(err, models.ErrNotSupported):
				found, checkErr := c.CheckUser(ctx, identifier)
				if checkErr != nil {
					entry.Error = checkErr.Error()
				} else {
					entry.Found = found
				}
			case err != nil:
				logrus.WithError(err).WithFields(logrus.Fields{
					"connector":  c.GetConnectorID(),
					"identifier": identifier,
				}).Debug("Detail lookup failed")
				entry.Error = err.Error()
			case details != nil:
				entry.Found = true
				entry.Details = details
			}

			mu.Lock()
			sources[c.GetConnectorID()] = entry
			mu.Unlock()
		}(connector)
	}

	wg.Wait()

	return &models.UserDetailsResult{
		Identifier: identifier,
		Sources:    sources,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func connectorIDs(connectors []models.Connector) []string {
	ids := make([]string, 0, len(connectors))
	for _, connector := range connectors {
		ids = append(ids, connector.GetConnectorID())
	}
	slices.Sort(ids)
	return ids
}
