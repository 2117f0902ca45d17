package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idsweep-io/idsweep/internal/alias"
	"github.com/idsweep-io/idsweep/internal/models"
)

// fakeConnector is a scriptable in-memory connector. Function fields override
// the embedded defaults, so a fake without listFn still reports
// models.ErrNotSupported for enumeration like a real existence-only connector.
type fakeConnector struct {
	*models.BaseConnector

	validateErr error
	checkFn     func(ctx context.Context, identifier string) (bool, error)
	listFn      func(ctx context.Context) ([]string, error)
	detailsFn   func(ctx context.Context, identifier string) (*models.UserDetails, error)
}

func newFakeConnector(id string, capabilities ...models.ConnectorCapability) *fakeConnector {
	if len(capabilities) == 0 {
		capabilities = []models.ConnectorCapability{models.CapabilityExistence}
	}
	return &fakeConnector{
		BaseConnector: models.NewBaseConnector(id, id, &models.BasicConfig{}, capabilities...),
	}
}

func (f *fakeConnector) Initialize(config *models.BasicConfig) error {
	return nil
}

func (f *fakeConnector) ValidateConfig() error {
	return f.validateErr
}

func (f *fakeConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	if f.checkFn == nil {
		return false, nil
	}
	return f.checkFn(ctx, identifier)
}

func (f *fakeConnector) ListUsers(ctx context.Context) ([]string, error) {
	if f.listFn == nil {
		return f.BaseConnector.ListUsers(ctx)
	}
	return f.listFn(ctx)
}

func (f *fakeConnector) GetUserDetails(ctx context.Context, identifier string) (*models.UserDetails, error) {
	if f.detailsFn == nil {
		return f.BaseConnector.GetUserDetails(ctx, identifier)
	}
	return f.detailsFn(ctx, identifier)
}

func presenceConnector(id string, present ...string) *fakeConnector {
	connector := newFakeConnector(id)
	connector.checkFn = func(ctx context.Context, identifier string) (bool, error) {
		for _, candidate := range present {
			if candidate == identifier {
				return true, nil
			}
		}
		return false, nil
	}
	return connector
}

func listingConnector(id string, users ...string) *fakeConnector {
	connector := presenceConnector(id, users...)
	connector.listFn = func(ctx context.Context) ([]string, error) {
		return users, nil
	}
	return connector
}

func TestCheckUsers(t *testing.T) {
	engine := New([]models.Connector{
		presenceConnector("alpha", "x@x.com", "y@x.com"),
		presenceConnector("beta", "y@x.com"),
	})

	result, err := engine.CheckUsers(context.Background(), []string{" X@X.com", "y@x.com", "x@x.com"})
	require.NoError(t, err)

	assert.Equal(t, []string{"x@x.com", "y@x.com"}, result.Users)
	assert.Equal(t, []string{"alpha", "beta"}, result.Sources)
	assert.Equal(t, map[string]map[string]bool{
		"x@x.com": {"alpha": true, "beta": false},
		"y@x.com": {"alpha": true, "beta": true},
	}, result.Results)
	assert.False(t, result.Timestamp.IsZero())
}

func TestCheckUsers_SourceFailureRecordsAbsent(t *testing.T) {
	broken := newFakeConnector("broken")
	broken.checkFn = func(ctx context.Context, identifier string) (bool, error) {
		return false, errors.New("connection refused")
	}

	engine := New([]models.Connector{
		broken,
		presenceConnector("healthy", "x@x.com"),
	})

	result, err := engine.CheckUsers(context.Background(), []string{"x@x.com"})
	require.NoError(t, err)

	assert.Equal(t, map[string]map[string]bool{
		"x@x.com": {"broken": false, "healthy": true},
	}, result.Results)
}

func TestCheckUsers_InvalidConfigExcludesSource(t *testing.T) {
	unconfigured := presenceConnector("unconfigured", "x@x.com")
	unconfigured.validateErr = models.ErrInvalidConfig

	engine := New([]models.Connector{
		unconfigured,
		presenceConnector("ready", "x@x.com"),
	})

	result, err := engine.CheckUsers(context.Background(), []string{"x@x.com"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ready"}, result.Sources)
	assert.Equal(t, map[string]bool{"ready": true}, result.Results["x@x.com"])
}

func TestCheckUsers_NoUsableIdentifiers(t *testing.T) {
	engine := New([]models.Connector{presenceConnector("alpha")})

	result, err := engine.CheckUsers(context.Background(), []string{"", "   "})
	require.NoError(t, err)

	assert.Empty(t, result.Users)
	assert.Empty(t, result.Results)
	assert.Equal(t, []string{"alpha"}, result.Sources)
}

func TestCheckUsers_TimeoutBoundsSlowConnector(t *testing.T) {
	stuck := newFakeConnector("stuck")
	stuck.checkFn = func(ctx context.Context, identifier string) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	}

	engine := New([]models.Connector{
		stuck,
		presenceConnector("fast", "x@x.com"),
	}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	result, err := engine.CheckUsers(context.Background(), []string{"x@x.com"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, map[string]bool{"stuck": false, "fast": true}, result.Results["x@x.com"])
}

func TestEnumerateUsers(t *testing.T) {
	engine := New([]models.Connector{
		listingConnector("alpha", "x@x.com", "y@x.com"),
		listingConnector("beta", "y@x.com", "z@x.com"),
	})

	enumeration, err := engine.EnumerateUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, enumeration.Sources)
	assert.Equal(t, []string{"x@x.com", "y@x.com", "z@x.com"}, enumeration.Users)
	assert.Equal(t, map[string][]string{
		"alpha": {"x@x.com", "y@x.com"},
		"beta":  {"y@x.com", "z@x.com"},
	}, enumeration.PerSource)
	assert.Equal(t, map[string]map[string]bool{
		"x@x.com": {"alpha": true, "beta": false},
		"y@x.com": {"alpha": true, "beta": true},
		"z@x.com": {"alpha": false, "beta": true},
	}, enumeration.Matrix)
}

func TestEnumerateUsers_NormalizesAndDeduplicates(t *testing.T) {
	engine := New([]models.Connector{
		listingConnector("alpha", "B@X.com", " a@x.com ", "a@x.com", ""),
	})

	enumeration, err := engine.EnumerateUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a@x.com", "b@x.com"}, enumeration.PerSource["alpha"])
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, enumeration.Users)
}

func TestEnumerateUsers_SkipsUnsupportedAndFailingSources(t *testing.T) {
	failing := newFakeConnector("failing", models.CapabilityExistence, models.CapabilityEnumeration)
	failing.listFn = func(ctx context.Context) ([]string, error) {
		return nil, errors.New("directory unavailable")
	}

	engine := New([]models.Connector{
		listingConnector("alpha", "x@x.com"),
		newFakeConnector("existence-only"),
		failing,
	})

	enumeration, err := engine.EnumerateUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha"}, enumeration.Sources)
	assert.Equal(t, map[string]bool{"alpha": true}, enumeration.Matrix["x@x.com"])
}

func TestCompare_GroupCountsOncePerSource(t *testing.T) {
	resolver := alias.NewResolver("")
	_, err := resolver.MergeUsers([]string{"x@x.com", "z@x.com"}, "")
	require.NoError(t, err)

	engine := New([]models.Connector{
		listingConnector("alpha", "x@x.com", "y@x.com"),
		listingConnector("beta", "y@x.com", "z@x.com"),
	})

	comparison, err := engine.Compare(context.Background(), resolver)
	require.NoError(t, err)

	assert.Equal(t, []string{"x@x.com", "y@x.com"}, comparison.AllUsers)
	assert.Equal(t, []string{"alpha", "beta"}, comparison.Sources)
	assert.Equal(t, map[string]map[string]bool{
		"x@x.com": {"alpha": true, "beta": true},
		"y@x.com": {"alpha": true, "beta": true},
	}, comparison.UserSources)
	assert.Equal(t, map[string]int{"alpha": 2, "beta": 2}, comparison.SourceCounts)
	assert.ElementsMatch(t, []string{"x@x.com", "z@x.com"}, comparison.Groups["x@x.com"].Members)
}

func TestCompare_NoEnumerableSources(t *testing.T) {
	engine := New([]models.Connector{newFakeConnector("existence-only")})

	comparison, err := engine.Compare(context.Background(), alias.NewResolver(""))
	require.NoError(t, err)

	assert.Empty(t, comparison.AllUsers)
	assert.Empty(t, comparison.Sources)
	assert.Empty(t, comparison.SourceCounts)
}

func TestDescribeUser(t *testing.T) {
	detailed := newFakeConnector("detailed", models.CapabilityExistence, models.CapabilityDetails)
	detailed.detailsFn = func(ctx context.Context, identifier string) (*models.UserDetails, error) {
		return &models.UserDetails{
			Username: identifier,
			Email:    identifier,
			Name:     "Alice Smith",
			Source:   "detailed",
		}, nil
	}

	engine := New([]models.Connector{
		detailed,
		presenceConnector("plain", "alice@x.com"),
	})

	result, err := engine.DescribeUser(context.Background(), " Alice@X.com")
	require.NoError(t, err)

	assert.Equal(t, "alice@x.com", result.Identifier)
	require.Len(t, result.Sources, 2)

	withDetails := result.Sources["detailed"]
	assert.True(t, withDetails.Found)
	require.NotNil(t, withDetails.Details)
	assert.Equal(t, "Alice Smith", withDetails.Details.Name)

	// plain has no detail support, so the engine falls back to existence
	fallback := result.Sources["plain"]
	assert.True(t, fallback.Found)
	assert.Nil(t, fallback.Details)
	assert.Empty(t, fallback.Error)
}

func TestDescribeUser_SourceErrorIsReportedPerSource(t *testing.T) {
	broken := newFakeConnector("broken", models.CapabilityExistence, models.CapabilityDetails)
	broken.detailsFn = func(ctx context.Context, identifier string) (*models.UserDetails, error) {
		return nil, errors.New("token expired")
	}

	engine := New([]models.Connector{broken, presenceConnector("healthy", "a@x.com")})

	result, err := engine.DescribeUser(context.Background(), "a@x.com")
	require.NoError(t, err)

	assert.Equal(t, "token expired", result.Sources["broken"].Error)
	assert.False(t, result.Sources["broken"].Found)
	assert.True(t, result.Sources["healthy"].Found)
}

func TestDirectory_AttachesDetailsFromCapableSources(t *testing.T) {
	detailed := listingConnector("detailed", "a@x.com")
	detailed.BaseConnector = models.NewBaseConnector("detailed", "detailed", &models.BasicConfig{},
		models.CapabilityExistence, models.CapabilityEnumeration, models.CapabilityDetails)
	detailed.detailsFn = func(ctx context.Context, identifier string) (*models.UserDetails, error) {
		if identifier != "a@x.com" {
			return nil, nil
		}
		return &models.UserDetails{Username: identifier, Title: "Engineer", Source: "detailed"}, nil
	}

	engine := New([]models.Connector{
		detailed,
		listingConnector("plain", "a@x.com", "b@x.com"),
	})

	directory, err := engine.Directory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"detailed", "plain"}, directory.Sources)
	require.Len(t, directory.Users, 2)

	first := directory.Users[0]
	assert.Equal(t, "a@x.com", first.Username)
	assert.Equal(t, map[string]bool{"detailed": true, "plain": true}, first.Sources)
	require.Contains(t, first.Details, "detailed")
	assert.Equal(t, "Engineer", first.Details["detailed"].Title)

	second := directory.Users[1]
	assert.Equal(t, "b@x.com", second.Username)
	assert.Equal(t, map[string]bool{"detailed": false, "plain": true}, second.Sources)
	assert.Empty(t, second.Details)
}
