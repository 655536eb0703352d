package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
)

// StatusCmd returns the status command.
func StatusCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("status", flag.ContinueOnError),
		Usage: "status",
		Short: "Per-feature verification status table",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			rows, err := eng.StatusTable()
			if err != nil {
				return err
			}

			if len(rows) == 0 {
				o.Println("no features registered")

				return nil
			}

			table := [][]string{{"ID", "STATUS", "CHECKLIST"}}

			for _, row := range rows {
				table = append(table, []string{
					row.ID,
					row.Status,
					fmt.Sprintf("%d/%d (%d%%)", row.Completed, row.Total, row.Percent),
				})
			}

			renderTable(o, table)

			return nil
		},
	}
}

// SummaryCmd returns the summary command.
func SummaryCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("summary", flag.ContinueOnError),
		Usage: "summary",
		Short: "Feature counts per status",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			s, err := eng.Summarize()
			if err != nil {
				return err
			}

			renderTable(o, [][]string{
				{"total", fmt.Sprintf("%d", s.Total)},
				{"verified", fmt.Sprintf("%d", s.Verified)},
				{"partial", fmt.Sprintf("%d", s.Partial)},
				{"unverified", fmt.Sprintf("%d", s.Unverified)},
			})

			return nil
		},
	}
}
