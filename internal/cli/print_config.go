package cli

import (
	"context"
	"strconv"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			o.Println("effective_cwd=" + cfg.EffectiveCwd)
			o.Println("config_file=" + cfg.ConfigFileAbs)
			o.Println("verify_file=" + cfg.VerifyFileAbs)

			if cfg.BackupDirAbs != "" {
				o.Println("backup_dir=" + cfg.BackupDirAbs)
			}

			o.Println("backup_keep=" + strconv.Itoa(cfg.BackupKeep))

			if cfg.Actor != "" {
				o.Println("actor=" + cfg.Actor)
			}

			o.Println("")
			o.Println("# sources")

			if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
				o.Println("(defaults only)")
			} else {
				if cfg.Sources.Global != "" {
					o.Println("global_config=" + cfg.Sources.Global)
				}

				if cfg.Sources.Project != "" {
					o.Println("project_config=" + cfg.Sources.Project)
				}
			}

			return nil
		},
	}
}
