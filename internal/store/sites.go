package store

import (
	"fmt"
	"time"

	"sitectl/internal/confdoc"
)

// Well-known section names in the configuration document.
const (
	SectionSettings = "settings"
	SectionRecipes  = "recipes"
	SectionSites    = "sites"
	SectionCoders   = "other_coders"
	SectionLinode   = "linode"
)

// Site is the record shape the installer layer registers under sites.<name>.
type Site struct {
	Name        string
	Directory   string
	Recipe      string
	Environment string

	// Created is set once when the record is added and never mutated.
	// Leave empty to have AddSite stamp the current time.
	Created string

	InstalledModules []string
	Production       *ProductionConfig
}

// ProductionConfig is the optional nested production_config record.
type ProductionConfig struct {
	Method string
	Server string
	Path   string
	Domain string
}

// AddSite registers a new site record. Fails with [ErrAlreadyExists] if a
// site of that name is already registered.
func (s *Store) AddSite(site Site) error {
	created := site.Created
	if created == "" {
		created = time.Now().UTC().Format(time.RFC3339)
	}

	fields := []confdoc.Field{
		{Key: "directory", Value: confdoc.StringValue(site.Directory)},
		{Key: "recipe", Value: confdoc.StringValue(site.Recipe)},
		{Key: "environment", Value: confdoc.StringValue(site.Environment)},
		{Key: "created", Value: confdoc.StringValue(created)},
		{Key: "installed_modules", Value: confdoc.ListValue(site.InstalledModules)},
	}

	if site.Production != nil {
		fields = append(fields, confdoc.Field{
			Key: "production_config",
			Value: confdoc.RecordValue([]confdoc.Field{
				{Key: "method", Value: confdoc.StringValue(site.Production.Method)},
				{Key: "server", Value: confdoc.StringValue(site.Production.Server)},
				{Key: "path", Value: confdoc.StringValue(site.Production.Path)},
				{Key: "domain", Value: confdoc.StringValue(site.Production.Domain)},
			}),
		})
	}

	return s.Add(SectionSites, site.Name, fields)
}

// RemoveSite deletes the site record and its whole nested block
// (installed_modules, production_config). There is no cascade beyond the
// record itself: nothing else references sites except by name, and name
// matches elsewhere (a recipe of the same name, say) are coincidence, not
// ownership.
func (s *Store) RemoveSite(name string) error {
	return s.Remove(SectionSites, name)
}

// SiteExists reports whether a site record is registered.
func (s *Store) SiteExists(name string) bool {
	return s.Exists(SectionSites + "." + name)
}

// SiteNames lists registered sites in document order.
func (s *Store) SiteNames() ([]string, error) {
	return s.RecordNames(SectionSites)
}

// SiteField reads one scalar field of a site record.
func (s *Store) SiteField(name, field string) (string, error) {
	return s.Get(SectionSites + "." + name + "." + field)
}

// SetSiteField upserts one scalar field of an existing site record. The
// created field is write-once and rejected here.
func (s *Store) SetSiteField(name, field, value string) error {
	if field == "created" {
		return fmt.Errorf("%w: sites.%s.created is set once at registration", ErrImmutableField, name)
	}

	if !s.SiteExists(name) {
		return fmt.Errorf("%w: %s.%s", ErrNotFound, SectionSites, name)
	}

	return s.UpdateField(SectionSites+"."+name+"."+field, value)
}

// AddInstalledModules appends modules to the site's installed_modules list,
// skipping modules already recorded. Returns the number added.
func (s *Store) AddInstalledModules(name string, modules []string) (int, error) {
	if !s.SiteExists(name) {
		return 0, fmt.Errorf("%w: %s.%s", ErrNotFound, SectionSites, name)
	}

	return s.AppendListItems(SectionSites+"."+name+".installed_modules", modules)
}

// LoadSite reads a full site record.
func (s *Store) LoadSite(name string) (Site, error) {
	base := SectionSites + "." + name
	if !s.Exists(base) {
		return Site{}, fmt.Errorf("%w: %s", ErrNotFound, base)
	}

	site := Site{Name: name}

	site.Directory, _ = s.Get(base + ".directory")
	site.Recipe, _ = s.Get(base + ".recipe")
	site.Environment, _ = s.Get(base + ".environment")
	site.Created, _ = s.Get(base + ".created")

	modules, err := s.GetArray(base + ".installed_modules")
	if err == nil {
		site.InstalledModules = modules
	}

	if s.Exists(base + ".production_config") {
		prod := &ProductionConfig{}
		prod.Method, _ = s.Get(base + ".production_config.method")
		prod.Server, _ = s.Get(base + ".production_config.server")
		prod.Path, _ = s.Get(base + ".production_config.path")
		prod.Domain, _ = s.Get(base + ".production_config.domain")
		site.Production = prod
	}

	return site, nil
}
