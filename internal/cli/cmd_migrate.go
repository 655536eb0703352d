package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
)

// MigrateCmd returns the migrate command.
func MigrateCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("migrate", flag.ContinueOnError),
		Usage: "migrate",
		Short: "Upgrade the verification document schema",
		Long: "Upgrade the verification document to the current schema. Safe to\n" +
			"run twice; an already current document is left untouched.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			migrated, err := eng.Migrate()
			if err != nil {
				return err
			}

			o.Println(fmt.Sprintf("migrated %d feature(s)", migrated))

			return nil
		},
	}
}
