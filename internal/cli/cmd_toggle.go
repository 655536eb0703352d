package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sitectl/internal/verify"

	flag "github.com/spf13/pflag"
)

var (
	errItemNumberRequired = errors.New("checklist item number is required")
	errNoteTextRequired   = errors.New("note text is required")
)

// ToggleCmd returns the toggle command.
func ToggleCmd(cfg *Config, env map[string]string) *Command {
	fs := flag.NewFlagSet("toggle", flag.ContinueOnError)
	fs.String("actor", "", "Who is toggling the item")

	return &Command{
		Flags: fs,
		Usage: "toggle <id> <item> [--actor name]",
		Short: "Flip one checklist item",
		Long: "Flip the completion state of one checklist item, addressed by its\n" +
			"1-based number as shown by details. Completing the whole checklist\n" +
			"auto-verifies the feature; breaking a fully checked list reverts\n" +
			"that auto-verification.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errFeatureIDRequired
			}

			if len(args) != 2 {
				return errItemNumberRequired
			}

			number, err := strconv.Atoi(args[1])
			if err != nil || number < 1 {
				return fmt.Errorf("%w: got %q", errItemNumberRequired, args[1])
			}

			actor, err := resolveActor(fs, cfg, env)
			if err != nil {
				return err
			}

			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			f, err := eng.Toggle(args[0], number-1, actor)
			if err != nil {
				return err
			}

			printChecklist(o, f.Checklist)
			o.Println()

			if f.VerifiedBy != "" {
				o.Println("status:", verify.DisplayStatus(f), "by", f.VerifiedBy)
			} else {
				o.Println("status:", verify.DisplayStatus(f))
			}

			return nil
		},
	}
}

// NoteCmd returns the note command.
func NoteCmd(cfg *Config, env map[string]string) *Command {
	fs := flag.NewFlagSet("note", flag.ContinueOnError)
	fs.String("actor", "", "Who is writing the note")

	return &Command{
		Flags: fs,
		Usage: "note <id> <text>... [--actor name]",
		Short: "Set a feature's free-form note",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errFeatureIDRequired
			}

			if len(args) < 2 {
				return errNoteTextRequired
			}

			actor, err := resolveActor(fs, cfg, env)
			if err != nil {
				return err
			}

			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			return eng.SetNote(args[0], strings.Join(args[1:], " "), actor)
		},
	}
}
