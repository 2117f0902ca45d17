package alias

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idsweep-io/idsweep/internal/models"
)

func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groups.json")
	return NewResolver(path), path
}

func TestGroupID_UngroupedIsItsOwnGroup(t *testing.T) {
	resolver, _ := newTestResolver(t)

	assert.Equal(t, "alice@example.com", resolver.GroupID("alice@example.com"))
	assert.Equal(t, []string{"alice@example.com"}, resolver.GroupMembers("alice@example.com"))
	assert.False(t, resolver.IsGrouped("alice@example.com"))
}

func TestGroupID_NormalizesCase(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.MergeUsers([]string{"alice@example.com", "a.smith@example.com"}, "")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", resolver.GroupID("  Alice@Example.COM "))
}

func TestMergeUsers_CreatesGroupKeyedByFirstInput(t *testing.T) {
	resolver, _ := newTestResolver(t)

	groupID, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com", "c@x.com"}, "Alex")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", groupID)

	for _, identifier := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		assert.Equal(t, groupID, resolver.GroupID(identifier))
		assert.True(t, resolver.IsGrouped(identifier))
	}

	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com", "c@x.com"}, resolver.GroupMembers(groupID))

	groups := resolver.Groups()
	require.Contains(t, groups, groupID)
	assert.Equal(t, "Alex", groups[groupID].DisplayName)
}

func TestMergeUsers_RequiresTwoIdentifiers(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.MergeUsers([]string{"a@x.com"}, "")
	assert.ErrorIs(t, err, models.ErrMergeRequiresTwo)

	// Duplicates collapse before the check
	_, err = resolver.MergeUsers([]string{"a@x.com", "A@X.COM", " a@x.com"}, "")
	assert.ErrorIs(t, err, models.ErrMergeRequiresTwo)

	_, err = resolver.MergeUsers(nil, "")
	assert.ErrorIs(t, err, models.ErrMergeRequiresTwo)
}

func TestMergeUsers_ExtendsExistingGroup(t *testing.T) {
	resolver, _ := newTestResolver(t)

	first, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com"}, "")
	require.NoError(t, err)

	// b is already grouped, so the new identifier folds into a's group
	second, err := resolver.MergeUsers([]string{"c@x.com", "b@x.com"}, "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com", "c@x.com"}, resolver.GroupMembers(first))
}

func TestMergeUsers_TwoExistingGroupsFoldIntoEarliestGroupedInput(t *testing.T) {
	resolver, _ := newTestResolver(t)

	groupA, err := resolver.MergeUsers([]string{"a@x.com", "a2@x.com"}, "")
	require.NoError(t, err)
	groupB, err := resolver.MergeUsers([]string{"b@x.com", "b2@x.com"}, "")
	require.NoError(t, err)

	// b belongs to groupB and a to groupA; b comes first in the input, so
	// everything folds into groupB and groupA disappears.
	merged, err := resolver.MergeUsers([]string{"new@x.com", "b@x.com", "a@x.com"}, "")
	require.NoError(t, err)

	assert.Equal(t, groupB, merged)
	assert.ElementsMatch(t,
		[]string{"a@x.com", "a2@x.com", "b@x.com", "b2@x.com", "new@x.com"},
		resolver.GroupMembers(merged))

	for _, identifier := range []string{"a@x.com", "a2@x.com", "new@x.com"} {
		assert.Equal(t, merged, resolver.GroupID(identifier))
	}
	assert.NotContains(t, resolver.Groups(), groupA)
}

func TestSplitUsers_SingletonCollapse(t *testing.T) {
	resolver, _ := newTestResolver(t)

	groupID, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com", "c@x.com"}, "")
	require.NoError(t, err)

	// Keeping only a leaves one member, so the group dissolves entirely
	require.NoError(t, resolver.SplitUsers(groupID, []string{"a@x.com"}))

	for _, identifier := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		assert.False(t, resolver.IsGrouped(identifier))
		assert.Equal(t, identifier, resolver.GroupID(identifier))
	}
	assert.Empty(t, resolver.Groups())
}

func TestSplitUsers_KeepsRemainingMembers(t *testing.T) {
	resolver, _ := newTestResolver(t)

	groupID, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com", "c@x.com"}, "")
	require.NoError(t, err)

	require.NoError(t, resolver.SplitUsers(groupID, []string{"a@x.com", "b@x.com"}))

	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, resolver.GroupMembers(groupID))
	assert.False(t, resolver.IsGrouped("c@x.com"))
	assert.Equal(t, "c@x.com", resolver.GroupID("c@x.com"))
}

func TestSplitUsers_EmptyKeepDeletesGroup(t *testing.T) {
	resolver, _ := newTestResolver(t)

	groupID, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com"}, "Alex")
	require.NoError(t, err)

	require.NoError(t, resolver.SplitUsers(groupID, nil))

	assert.Empty(t, resolver.Groups())
	assert.Equal(t, "a@x.com", resolver.GroupID("a@x.com"))
	assert.Equal(t, "b@x.com", resolver.GroupID("b@x.com"))
}

func TestSplitUsers_UnknownGroup(t *testing.T) {
	resolver, _ := newTestResolver(t)

	err := resolver.SplitUsers("nobody@x.com", []string{"a@x.com"})
	assert.ErrorIs(t, err, models.ErrGroupNotFound)
}

func TestSplitUsers_NothingRemovedLeavesFileUntouched(t *testing.T) {
	resolver, path := newTestResolver(t)

	groupID, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com"}, "")
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, resolver.SplitUsers(groupID, []string{"a@x.com", "b@x.com"}))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestConsolidate_ORSemantics(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com"}, "")
	require.NoError(t, err)

	matrix := map[string]map[string]bool{
		"a@x.com": {"okta": true, "ad": false},
		"b@x.com": {"okta": false, "ad": true},
	}

	consolidated, groups := resolver.Consolidate(matrix)

	require.Contains(t, consolidated, "a@x.com")
	assert.Equal(t, map[string]bool{"okta": true, "ad": true}, consolidated["a@x.com"])
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, groups["a@x.com"].Members)
	assert.Len(t, consolidated, 1)
}

func TestConsolidate_UngroupedPassThrough(t *testing.T) {
	resolver, _ := newTestResolver(t)

	matrix := map[string]map[string]bool{
		"x@x.com": {"a": true, "b": false},
		"y@x.com": {"a": false, "b": true},
	}

	consolidated, groups := resolver.Consolidate(matrix)

	assert.Equal(t, matrix, consolidated)
	assert.Equal(t, []string{"x@x.com"}, groups["x@x.com"].Members)
	assert.Equal(t, []string{"y@x.com"}, groups["y@x.com"].Members)
}

func TestConsolidate_Idempotent(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.MergeUsers([]string{"a@x.com", "c@x.com"}, "")
	require.NoError(t, err)

	matrix := map[string]map[string]bool{
		"a@x.com": {"okta": true, "ad": false},
		"b@x.com": {"okta": true, "ad": true},
		"c@x.com": {"okta": false, "ad": false},
	}

	first, firstGroups := resolver.Consolidate(matrix)
	second, secondGroups := resolver.Consolidate(matrix)

	assert.Equal(t, first, second)
	assert.Equal(t, firstGroups, secondGroups)
}

func TestPersistenceRoundtrip(t *testing.T) {
	resolver, path := newTestResolver(t)

	groupID, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com"}, "Alex")
	require.NoError(t, err)

	// A fresh resolver on the same path reconstructs identical mappings
	reloaded := NewResolver(path)
	assert.Equal(t, groupID, reloaded.GroupID("a@x.com"))
	assert.Equal(t, groupID, reloaded.GroupID("b@x.com"))
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, reloaded.GroupMembers(groupID))

	groups := reloaded.Groups()
	require.Contains(t, groups, groupID)
	assert.Equal(t, "Alex", groups[groupID].DisplayName)
}

func TestLoad_MissingFileIsEmptyGrouping(t *testing.T) {
	resolver := NewResolver(filepath.Join(t.TempDir(), "does-not-exist.json"))

	assert.Equal(t, "a@x.com", resolver.GroupID("a@x.com"))
	assert.Empty(t, resolver.Groups())
}

func TestLoad_DuplicateIdentifierKeepsFirstOccurrence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	doc := map[string]any{
		"version": "1.0",
		"groups": []map[string]any{
			{"id": "g1", "emails": []string{"dup@x.com", "only1@x.com"}},
			{"id": "g2", "emails": []string{"dup@x.com", "only2@x.com"}},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	resolver := NewResolver(path)

	assert.Equal(t, "g1", resolver.GroupID("dup@x.com"))
	assert.Equal(t, "g2", resolver.GroupID("only2@x.com"))
	assert.ElementsMatch(t, []string{"dup@x.com", "only1@x.com"}, resolver.GroupMembers("g1"))
	assert.ElementsMatch(t, []string{"only2@x.com"}, resolver.GroupMembers("g2"))
}

func TestLoad_UnexpectedVersionStillLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "2.5",
		"groups": [{"id": "g1", "emails": ["a@x.com", "b@x.com"], "display_name": "Alex"}]
	}`), 0o644))

	resolver := NewResolver(path)

	assert.Equal(t, "g1", resolver.GroupID("a@x.com"))
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, resolver.GroupMembers("g1"))
}

func TestLoad_MalformedFileIsEmptyGrouping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	resolver := NewResolver(path)

	assert.Equal(t, "a@x.com", resolver.GroupID("a@x.com"))
	assert.Empty(t, resolver.Groups())
}

func TestLoad_SkipsMalformedGroupRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "1.0",
		"groups": [
			{"id": "", "emails": ["orphan@x.com"]},
			{"id": "noemails", "emails": []},
			{"id": "ok", "emails": ["a@x.com", "b@x.com"]}
		]
	}`), 0o644))

	resolver := NewResolver(path)

	groups := resolver.Groups()
	assert.Len(t, groups, 1)
	assert.Contains(t, groups, "ok")
	assert.Equal(t, "orphan@x.com", resolver.GroupID("orphan@x.com"))
}

func TestSave_WritesVersionedDocument(t *testing.T) {
	resolver, path := newTestResolver(t)

	_, err := resolver.MergeUsers([]string{"b@x.com", "a@x.com"}, "Alex")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Version string `json:"version"`
		Groups  []struct {
			ID          string   `json:"id"`
			Emails      []string `json:"emails"`
			DisplayName string   `json:"display_name"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "1.0", doc.Version)
	require.Len(t, doc.Groups, 1)
	assert.Equal(t, "b@x.com", doc.Groups[0].ID)
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, doc.Groups[0].Emails)
	assert.Equal(t, "Alex", doc.Groups[0].DisplayName)
}

func TestInMemoryResolverNeverTouchesDisk(t *testing.T) {
	resolver := NewResolver("")

	groupID, err := resolver.MergeUsers([]string{"a@x.com", "b@x.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", groupID)
	assert.True(t, resolver.IsGrouped("b@x.com"))
}
