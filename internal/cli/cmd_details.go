package cli

import (
	"context"
	"fmt"

	"sitectl/internal/verify"

	flag "github.com/spf13/pflag"
)

// historyTail is how many recent history events details shows.
const historyTail = 5

// DetailsCmd returns the details command.
func DetailsCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("details", flag.ContinueOnError),
		Usage: "details <id>",
		Short: "Full report for one feature",
		Long: "Show one feature's tracked files, checklist, recent history, and\n" +
			"whether its tracked files drifted since verification.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errFeatureIDRequired
			}

			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			d, err := eng.Inspect(args[0])
			if err != nil {
				return err
			}

			printDetails(o, d)

			return nil
		},
	}
}

func printDetails(o *IO, d verify.Details) {
	f := d.Feature

	o.Println(f.ID)

	head := [][]string{
		{"status", d.DisplayStatus},
	}

	if f.VerifiedBy != "" {
		head = append(head, []string{"verified_by", f.VerifiedBy})
		head = append(head, []string{"verified_at", f.VerifiedAt})
	}

	if f.Notes != "" {
		head = append(head, []string{"notes", f.Notes})
	}

	renderTable(o, head)

	if d.HashErr != nil {
		o.Warn(
			fmt.Sprintf("could not hash tracked files (%v)", d.HashErr),
			"drift status is unknown until the files are readable",
		)
	}

	if d.Drifted {
		o.Println()
		o.Println("tracked files changed since verification:")

		for _, path := range d.ChangedFiles {
			o.Println("  " + path)
		}
	}

	if len(f.TrackedFiles) > 0 {
		o.Println()
		o.Println("tracked files:")

		for _, path := range f.TrackedFiles {
			o.Println("  " + path)
		}
	}

	if len(f.Checklist) > 0 {
		o.Println()
		o.Println(fmt.Sprintf("checklist (%d%%):", d.Percent))
		printChecklist(o, f.Checklist)
	}

	if len(f.History) > 0 {
		o.Println()
		o.Println("recent history:")

		events := f.History
		if len(events) > historyTail {
			events = events[len(events)-historyTail:]
		}

		rows := [][]string{}
		for _, event := range events {
			rows = append(rows, []string{
				"  " + event.Timestamp,
				string(event.EventType),
				event.Actor,
				event.Detail,
			})
		}

		renderTable(o, rows)
	}
}

func printChecklist(o *IO, items []verify.ChecklistItem) {
	rows := [][]string{}

	for idx, item := range items {
		mark := "[ ]"
		by := ""

		if item.Completed {
			mark = "[x]"
			by = item.CompletedBy
		}

		rows = append(rows, []string{
			fmt.Sprintf("  %d.", idx+1),
			mark,
			item.Text,
			by,
		})
	}

	renderTable(o, rows)
}
