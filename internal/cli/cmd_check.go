package cli

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// CheckCmd returns the check command.
func CheckCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("check", flag.ContinueOnError),
		Usage: "check",
		Short: "Invalidate verifications whose tracked files changed",
		Long: "Recompute every verified feature's fingerprint and invalidate those\n" +
			"whose tracked files changed since verification. Exits 1 when at\n" +
			"least one feature was invalidated, so CI can gate on it.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			results, err := eng.Check()
			if err != nil {
				return err
			}

			invalidated := 0

			for _, result := range results {
				if result.Err != nil {
					o.Warn(
						fmt.Sprintf("could not check %s (%v)", result.ID, result.Err),
						"fix the tracked files and re-run check",
					)

					continue
				}

				if result.Invalidated {
					invalidated++

					o.Println("invalidated:", result.ID)

					if len(result.Changed) > 0 {
						o.Println("  changed:", strings.Join(result.Changed, ", "))
					}
				}
			}

			o.Println(fmt.Sprintf("checked %d feature(s), %d invalidated", len(results), invalidated))

			if invalidated > 0 {
				o.SetExit(1)
			}

			return nil
		},
	}
}
