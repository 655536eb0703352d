package store_test

import (
	"path/filepath"
	"testing"

	"sitectl/internal/fs"
	"sitectl/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSiteStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(fs.NewReal(), filepath.Join(t.TempDir(), "config.yml"))
	require.NoError(t, err)

	return st
}

// Scenario from the installer layer: add, query a field, remove, and
// confirm an unrelated site survives.
func Test_SiteLifecycle_AddQueryRemove(t *testing.T) {
	t.Parallel()

	st := newSiteStore(t)

	require.NoError(t, st.AddSite(store.Site{
		Name:        "x",
		Directory:   "/tmp/x",
		Recipe:      "d",
		Environment: "development",
	}))
	require.NoError(t, st.AddSite(store.Site{
		Name:        "y",
		Directory:   "/tmp/y",
		Recipe:      "d",
		Environment: "development",
	}))

	recipe, err := st.SiteField("x", "recipe")
	require.NoError(t, err)
	assert.Equal(t, "d", recipe)

	require.NoError(t, st.RemoveSite("x"))

	assert.False(t, st.SiteExists("x"))
	assert.True(t, st.SiteExists("y"))
}

func Test_AddSite_StampsCreatedOnce(t *testing.T) {
	t.Parallel()

	st := newSiteStore(t)

	require.NoError(t, st.AddSite(store.Site{
		Name:        "stamped",
		Directory:   "/tmp/s",
		Recipe:      "d",
		Environment: "development",
	}))

	created, err := st.SiteField("stamped", "created")
	require.NoError(t, err)
	assert.NotEmpty(t, created)

	// created is write-once.
	err = st.SetSiteField("stamped", "created", "2020-01-01T00:00:00Z")
	require.ErrorIs(t, err, store.ErrImmutableField)

	after, err := st.SiteField("stamped", "created")
	require.NoError(t, err)
	assert.Equal(t, created, after)
}

func Test_AddSite_PersistsNestedProductionConfig(t *testing.T) {
	t.Parallel()

	st := newSiteStore(t)

	require.NoError(t, st.AddSite(store.Site{
		Name:             "prod",
		Directory:        "/var/www/prod",
		Recipe:           "d10_standard",
		Environment:      "production",
		InstalledModules: []string{"pathauto"},
		Production: &store.ProductionConfig{
			Method: "rsync",
			Server: "web1.example.org",
			Path:   "/var/www/prod",
			Domain: "prod.example.org",
		},
	}))

	site, err := st.LoadSite("prod")
	require.NoError(t, err)

	assert.Equal(t, "/var/www/prod", site.Directory)
	assert.Equal(t, []string{"pathauto"}, site.InstalledModules)
	require.NotNil(t, site.Production)
	assert.Equal(t, "rsync", site.Production.Method)
	assert.Equal(t, "prod.example.org", site.Production.Domain)
}

func Test_AddInstalledModules_RequiresExistingSite(t *testing.T) {
	t.Parallel()

	st := newSiteStore(t)

	_, err := st.AddInstalledModules("ghost", []string{"pathauto"})
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.AddSite(store.Site{
		Name:        "real",
		Directory:   "/tmp/r",
		Recipe:      "d",
		Environment: "development",
	}))

	added, err := st.AddInstalledModules("real", []string{"pathauto", "redirect"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	modules, err := st.GetArray("sites.real.installed_modules")
	require.NoError(t, err)
	assert.Equal(t, []string{"pathauto", "redirect"}, modules)
}
