// Package alias maintains the durable mapping from individual identifiers to
// logical group identifiers and reduces per-identifier presence results into
// per-group results with OR-semantics across a group's members.
package alias

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/models"
)

// Resolver is the alias-grouping state machine. It is constructed once at
// startup and injected into whatever needs grouping; every public operation
// takes the resolver's lock, so concurrent merges and splits against the same
// instance serialize cleanly. Persisted state loads lazily on first use.
//
// An identifier not present in any explicit group is its own singleton group
// whose id is the identifier itself. Every identifier belongs to at most one
// group at a time.
type Resolver struct {
	mu     sync.Mutex
	path   string
	loaded bool

	emailToGroup map[string]string
	groups       map[string][]string
	displayNames map[string]string
}

// NewResolver creates a resolver backed by the grouping file at path. An
// empty path keeps the grouping purely in memory, which one-shot commands and
// tests use.
func NewResolver(path string) *Resolver {
	return &Resolver{
		path: path,
	}
}

// GroupID returns the identifier's group id, or the identifier itself when it
// is ungrouped.
func (r *Resolver) GroupID(identifier string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()
	return r.groupIDLocked(common.NormalizeIdentifier(identifier))
}

// GroupMembers returns the ordered member list of a group, or a singleton
// list of the input when it is not a recognized group id.
func (r *Resolver) GroupMembers(groupID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()
	if members, ok := r.groups[groupID]; ok {
		return slices.Clone(members)
	}
	return []string{groupID}
}

// IsGrouped reports whether the identifier belongs to a group with more than
// one member.
func (r *Resolver) IsGrouped(identifier string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()
	gid := r.groupIDLocked(common.NormalizeIdentifier(identifier))
	return len(r.groups[gid]) > 1
}

// Groups returns a snapshot of every explicit group for display.
func (r *Resolver) Groups() map[string]models.GroupView {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()
	snapshot := make(map[string]models.GroupView, len(r.groups))
	for gid, members := range r.groups {
		snapshot[gid] = models.GroupView{
			Members:     slices.Clone(members),
			DisplayName: r.displayNames[gid],
		}
	}
	return snapshot
}

// MergeUsers folds two or more identifiers into one group and persists the
// result before returning. When one or more inputs already belong to existing
// groups, every input and every member of every involved group is folded into
// the group of the earliest grouped input, deterministically; otherwise a new
// group is created with the first input as its id. Returns the resulting
// group id.
func (r *Resolver) MergeUsers(identifiers []string, displayName string) (string, error) {
	normalized := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		if n := common.NormalizeIdentifier(identifier); len(n) > 0 {
			normalized = append(normalized, n)
		}
	}
	normalized = common.UniqueStable(normalized)

	if len(normalized) < 2 {
		return "", fmt.Errorf("%w: got %d", models.ErrMergeRequiresTwo, len(normalized))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	target := ""
	for _, identifier := range normalized {
		if gid, ok := r.emailToGroup[identifier]; ok {
			target = gid
			break
		}
	}
	if len(target) == 0 {
		target = normalized[0]
	}

	merged := make([]string, 0, len(normalized))
	seen := make(map[string]struct{})
	appendMember := func(identifier string) {
		if _, ok := seen[identifier]; ok {
			return
		}
		seen[identifier] = struct{}{}
		merged = append(merged, identifier)
	}

	for _, member := range r.groups[target] {
		appendMember(member)
	}
	for _, identifier := range normalized {
		if gid, ok := r.emailToGroup[identifier]; ok && gid != target {
			absorbed := r.groups[gid]
			for _, member := range absorbed {
				appendMember(member)
			}
			delete(r.groups, gid)
			delete(r.displayNames, gid)
		}
		appendMember(identifier)
	}

	r.groups[target] = merged
	for _, member := range merged {
		r.emailToGroup[member] = target
	}
	if len(displayName) > 0 {
		r.displayNames[target] = displayName
	}

	if err := r.saveLocked(); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"group":   target,
		"members": len(merged),
	}).Info("Merged identifiers into group")

	return target, nil
}

// SplitUsers removes every member of the group that is not in keep and
// persists the result. An empty keep-list deletes the group entirely; a group
// left with a single member is also deleted, demoting the member back to an
// implicit singleton. Unknown group ids fail with models.ErrGroupNotFound.
func (r *Resolver) SplitUsers(groupID string, keep []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	members, ok := r.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrGroupNotFound, groupID)
	}

	keepSet := make(map[string]struct{}, len(keep))
	for _, identifier := range keep {
		if n := common.NormalizeIdentifier(identifier); len(n) > 0 {
			keepSet[n] = struct{}{}
		}
	}

	kept := make([]string, 0, len(members))
	removed := make([]string, 0, len(members))
	for _, member := range members {
		if _, ok := keepSet[member]; ok {
			kept = append(kept, member)
		} else {
			removed = append(removed, member)
		}
	}

	if len(removed) == 0 {
		// Nothing to split off, leave state and file untouched.
		return nil
	}

	for _, member := range removed {
		delete(r.emailToGroup, member)
	}

	if len(kept) <= 1 {
		for _, member := range kept {
			delete(r.emailToGroup, member)
		}
		delete(r.groups, groupID)
		delete(r.displayNames, groupID)
		logrus.WithField("group", groupID).Info("Deleted group after split")
	} else {
		r.groups[groupID] = kept
	}

	return r.saveLocked()
}

// Consolidate reduces a per-identifier presence matrix into a per-group one.
// For every entry the identifier resolves to its group, per-source flags
// OR-merge into the group's running flags, and member lists accumulate in
// deterministic (case-insensitive sorted) order. Pure: no persistence side
// effects, identical output for identical input and grouping state.
func (r *Resolver) Consolidate(matrix map[string]map[string]bool) (map[string]map[string]bool, map[string]models.GroupView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	consolidated := make(map[string]map[string]bool)
	groupDetails := make(map[string]models.GroupView)

	identifiers := common.SortIdentifiers(slices.Collect(maps.Keys(matrix)))
	for _, identifier := range identifiers {
		gid := r.groupIDLocked(identifier)

		row, ok := consolidated[gid]
		if !ok {
			row = make(map[string]bool)
			consolidated[gid] = row
		}
		for source, present := range matrix[identifier] {
			row[source] = row[source] || present
		}

		view, ok := groupDetails[gid]
		if !ok {
			view = models.GroupView{DisplayName: r.displayNames[gid]}
		}
		if !slices.Contains(view.Members, identifier) {
			view.Members = append(view.Members, identifier)
		}
		groupDetails[gid] = view
	}

	return consolidated, groupDetails
}

func (r *Resolver) groupIDLocked(identifier string) string {
	if gid, ok := r.emailToGroup[identifier]; ok {
		return gid
	}
	return identifier
}

// ensureLoaded reads the grouping file once. Callers hold r.mu. Missing,
// unreadable or malformed files degrade to an empty grouping with a log line,
// never an error.
func (r *Resolver) ensureLoaded() {
	if r.loaded {
		return
	}
	r.loaded = true
	r.emailToGroup = make(map[string]string)
	r.groups = make(map[string][]string)
	r.displayNames = make(map[string]string)

	if len(r.path) == 0 {
		return
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.WithField("path", r.path).Info("No grouping file found, starting with empty grouping")
		} else {
			logrus.WithError(err).WithField("path", r.path).Warn("Failed to read grouping file, starting with empty grouping")
		}
		return
	}

	var doc models.GroupingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logrus.WithError(err).WithField("path", r.path).Warn("Malformed grouping file, starting with empty grouping")
		return
	}

	if doc.Version == nil {
		logrus.WithField("path", r.path).Warn("Grouping file has no parseable version, loading anyway")
	} else if !doc.Version.Equal(models.GroupingFileVersion) {
		logrus.WithFields(logrus.Fields{
			"path":     r.path,
			"version":  doc.Version.Original(),
			"expected": models.GroupingFileVersion.Original(),
		}).Warn("Unexpected grouping file version, loading anyway")
	}

	for _, group := range doc.Groups {
		if len(group.ID) == 0 || len(group.Emails) == 0 {
			logrus.WithField("group", group.ID).Warn("Skipping malformed group record")
			continue
		}
		if _, exists := r.groups[group.ID]; exists {
			logrus.WithField("group", group.ID).Warn("Duplicate group id in grouping file, keeping first occurrence")
			continue
		}

		members := make([]string, 0, len(group.Emails))
		for _, email := range group.Emails {
			identifier := common.NormalizeIdentifier(email)
			if len(identifier) == 0 {
				continue
			}
			if existing, ok := r.emailToGroup[identifier]; ok {
				logrus.WithFields(logrus.Fields{
					"identifier": identifier,
					"kept_group": existing,
					"group":      group.ID,
				}).Warn("Identifier appears in multiple groups, keeping first occurrence")
				continue
			}
			r.emailToGroup[identifier] = group.ID
			members = append(members, identifier)
		}
		if len(members) == 0 {
			continue
		}

		r.groups[group.ID] = members
		if len(group.DisplayName) > 0 {
			r.displayNames[group.ID] = group.DisplayName
		}
	}

	logrus.WithFields(logrus.Fields{
		"path":   r.path,
		"groups": len(r.groups),
	}).Debug("Loaded grouping file")
}

// saveLocked serializes the full group set from the in-memory copy and
// renames a temp file into place. Callers hold r.mu.
func (r *Resolver) saveLocked() error {
	if len(r.path) == 0 {
		return nil
	}

	doc := models.GroupingDocument{
		Version: models.GroupingFileVersion,
		Groups:  make([]models.GroupRecord, 0, len(r.groups)),
	}
	for _, gid := range common.SortIdentifiers(slices.Collect(maps.Keys(r.groups))) {
		doc.Groups = append(doc.Groups, models.GroupRecord{
			ID:          gid,
			Emails:      slices.Clone(r.groups[gid]),
			DisplayName: r.displayNames[gid],
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode grouping state: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write grouping file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace grouping file: %w", err)
	}

	return nil
}
