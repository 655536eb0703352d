package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sitectl/internal/store"

	flag "github.com/spf13/pflag"
)

var (
	errSiteNameRequired = errors.New("site name is required")
	errDirRequired      = errors.New("--dir is required")
	errRecipeRequired   = errors.New("--recipe is required")
	errBadSetFlag       = errors.New("--set requires field=value")
)

// AddSiteCmd returns the add-site command.
func AddSiteCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("add-site", flag.ContinueOnError)
	fs.String("dir", "", "Site directory")
	fs.String("recipe", "", "Recipe the site was installed from")
	fs.String("env", "development", "Environment (development|production)")
	fs.String("prod-method", "", "Production deploy method")
	fs.String("prod-server", "", "Production server")
	fs.String("prod-path", "", "Production path")
	fs.String("prod-domain", "", "Production domain")

	return &Command{
		Flags: fs,
		Usage: "add-site <name> [flags]",
		Short: "Register a site record",
		Long: "Register a new site under sites.<name>. The created timestamp is\n" +
			"stamped once at registration and never changes afterwards.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errSiteNameRequired
			}

			dir, _ := fs.GetString("dir")
			if dir == "" {
				return errDirRequired
			}

			recipe, _ := fs.GetString("recipe")
			if recipe == "" {
				return errRecipeRequired
			}

			env, _ := fs.GetString("env")

			site := store.Site{
				Name:        args[0],
				Directory:   dir,
				Recipe:      recipe,
				Environment: env,
			}

			method, _ := fs.GetString("prod-method")
			server, _ := fs.GetString("prod-server")
			path, _ := fs.GetString("prod-path")
			domain, _ := fs.GetString("prod-domain")

			if method != "" || server != "" || path != "" || domain != "" {
				site.Production = &store.ProductionConfig{
					Method: method,
					Server: server,
					Path:   path,
					Domain: domain,
				}
			}

			st, err := openConfigStore(cfg)
			if err != nil {
				return err
			}

			err = st.AddSite(site)
			if err != nil {
				return err
			}

			o.Println("added site", site.Name)

			return nil
		},
	}
}

// RemoveSiteCmd returns the remove-site command.
func RemoveSiteCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("remove-site", flag.ContinueOnError),
		Usage: "remove-site <name>",
		Short: "Remove a site record",
		Long: "Remove the record at sites.<name>. Sibling records keep their\n" +
			"exact bytes; only the named site's block is deleted.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errSiteNameRequired
			}

			st, err := openConfigStore(cfg)
			if err != nil {
				return err
			}

			err = st.RemoveSite(args[0])
			if err != nil {
				return err
			}

			o.Println("removed site", args[0])

			return nil
		},
	}
}

// SiteCmd returns the site command.
func SiteCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("site", flag.ContinueOnError)
	fs.StringArray("add-module", nil, "Record an installed module (repeatable)")
	fs.String("set", "", "Set a field, as field=value")

	return &Command{
		Flags: fs,
		Usage: "site <name> [field] [flags]",
		Short: "Show or update one site",
		Long: "Show a site record, or one of its fields. --set updates a scalar\n" +
			"field (created is write-once and refused); --add-module appends to\n" +
			"installed_modules.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errSiteNameRequired
			}

			name := args[0]

			st, err := openConfigStore(cfg)
			if err != nil {
				return err
			}

			if modules, _ := fs.GetStringArray("add-module"); len(modules) > 0 {
				added, err := st.AddInstalledModules(name, modules)
				if err != nil {
					return err
				}

				o.Println(fmt.Sprintf("added %d module(s)", added))

				return nil
			}

			if fs.Changed("set") {
				assignment, _ := fs.GetString("set")

				field, value, ok := strings.Cut(assignment, "=")
				if !ok || field == "" {
					return errBadSetFlag
				}

				return st.SetSiteField(name, field, value)
			}

			if len(args) > 1 {
				value, err := st.SiteField(name, args[1])
				if err != nil {
					return err
				}

				o.Println(value)

				return nil
			}

			return printSite(o, st, name)
		},
	}
}

func printSite(o *IO, st *store.Store, name string) error {
	site, err := st.LoadSite(name)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"directory", site.Directory},
		{"recipe", site.Recipe},
		{"environment", site.Environment},
		{"created", site.Created},
	}

	if len(site.InstalledModules) > 0 {
		rows = append(rows, []string{"installed_modules", strings.Join(site.InstalledModules, ", ")})
	}

	if site.Production != nil {
		rows = append(rows,
			[]string{"production.method", site.Production.Method},
			[]string{"production.server", site.Production.Server},
			[]string{"production.path", site.Production.Path},
			[]string{"production.domain", site.Production.Domain},
		)
	}

	renderTable(o, rows)

	return nil
}
