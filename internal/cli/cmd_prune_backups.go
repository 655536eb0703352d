package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
)

// PruneBackupsCmd returns the prune-backups command.
func PruneBackupsCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("prune-backups", flag.ContinueOnError)
	fs.Int("keep", 0, "Backups to keep per file (default: backup_keep config)")

	return &Command{
		Flags: fs,
		Usage: "prune-backups [--keep N]",
		Short: "Delete old document backups",
		Long: "Delete all but the newest N backups of the configuration and the\n" +
			"verification document. Writes never prune on their own; this is the\n" +
			"only place backups are deleted.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			keep := cfg.BackupKeep
			if fs.Changed("keep") {
				keep, _ = fs.GetInt("keep")
			}

			configStore, err := openConfigStore(cfg)
			if err != nil {
				return err
			}

			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			removed, err := configStore.PruneBackups(keep)
			if err != nil {
				return err
			}

			n, err := eng.Store().PruneBackups(keep)
			if err != nil {
				return err
			}

			removed += n

			o.Println(fmt.Sprintf("removed %d backup(s), keeping up to %d per file", removed, keep))

			return nil
		},
	}
}
