package aggregate

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/models"
)

// Grouper reduces a per-identifier presence matrix into a per-group one. The
// alias resolver satisfies it.
type Grouper interface {
	Consolidate(matrix map[string]map[string]bool) (map[string]map[string]bool, map[string]models.GroupView)
}

// Compare runs the full consolidation pipeline: enumeration fan-out across
// all sources, raw presence matrix over the union identifier space, group
// consolidation, and per-source counts summed over the consolidated matrix so
// a group counts once per source regardless of how many of its members were
// individually found there.
func (e *Engine) Compare(ctx context.Context, grouper Grouper) (*models.ComparisonResult, error) {
	enumeration, err := e.EnumerateUsers(ctx)
	if err != nil {
		return nil, err
	}

	consolidated, groups := grouper.Consolidate(enumeration.Matrix)

	counts := make(map[string]int, len(enumeration.Sources))
	for _, source := range enumeration.Sources {
		counts[source] = 0
	}
	for _, row := range consolidated {
		for source, present := range row {
			if present {
				counts[source]++
			}
		}
	}

	return &models.ComparisonResult{
		AllUsers:     common.SortIdentifiers(slices.Collect(maps.Keys(consolidated))),
		Sources:      enumeration.Sources,
		UserSources:  consolidated,
		SourceCounts: counts,
		Groups:       groups,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// Directory lists the union identifier space with per-source presence and
// whatever attribute records detail-capable sources return. Detail lookups
// run per identifier as one concurrent batch; a failing source contributes no
// record for that identifier.
func (e *Engine) Directory(ctx context.Context) (*models.DirectoryResult, error) {
	enumeration, err := e.EnumerateUsers(ctx)
	if err != nil {
		return nil, err
	}

	detailCapable := make([]models.Connector, 0, len(e.connectors))
	for _, connector := range e.available() {
		if connector.HasCapability(models.CapabilityDetails) {
			detailCapable = append(detailCapable, connector)
		}
	}

	ctx, cancel := e.operationContext(ctx)
	defer cancel()

	users := make([]models.DirectoryUser, 0, len(enumeration.Users))
	for _, identifier := range enumeration.Users {
		entry := models.DirectoryUser{
			Username: identifier,
			Sources:  enumeration.Matrix[identifier],
		}

		if len(detailCapable) > 0 {
			details := make(map[string]*models.UserDetails, len(detailCapable))

			var wg sync.WaitGroup
			var mu sync.Mutex

			for _, connector := range detailCapable {
				wg.Add(1)
				go func(c models.Connector) {
					defer wg.Done()

					record, err := c.GetUserDetails(ctx, identifier)
					if err != nil || record == nil {
						return
					}

					mu.Lock()
					details[c.GetConnectorID()] = record
					mu.Unlock()
				}(connector)
			}

			wg.Wait()

			if len(details) > 0 {
				entry.Details = details
			}
		}

		users = append(users, entry)
	}

	return &models.DirectoryResult{
		Users:     users,
		Sources:   enumeration.Sources,
		Timestamp: time.Now().UTC(),
	}, nil
}
