package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"sitectl/internal/verify"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

// ChecklistCmd returns the checklist command, an interactive session over
// one feature's checklist.
func ChecklistCmd(cfg *Config, env map[string]string, in io.Reader) *Command {
	fs := flag.NewFlagSet("checklist", flag.ContinueOnError)
	fs.String("actor", "", "Who is working the checklist")

	return &Command{
		Flags: fs,
		Usage: "checklist <id> [--actor name]",
		Short: "Work a checklist interactively",
		Long: "Walk a feature's checklist interactively: type an item number to\n" +
			"toggle it, q to quit. Every toggle is persisted immediately.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errFeatureIDRequired
			}

			actor, err := resolveActor(fs, cfg, env)
			if err != nil {
				return err
			}

			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			f, err := eng.Feature(args[0])
			if err != nil {
				return err
			}

			return checklistSession(ctx, o, eng, f, actor, in)
		},
	}
}

func checklistSession(ctx context.Context, o *IO, eng *verify.Engine, f verify.Feature, actor string, in io.Reader) error {
	prompt, done := checklistPrompt(o, in)
	defer done()

	for {
		printChecklist(o, f.Checklist)
		o.Println()
		o.Println("status:", verify.DisplayStatus(f))

		if ctx.Err() != nil {
			return nil
		}

		input, err := prompt()
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "q" || input == "quit" {
			return nil
		}

		number, convErr := strconv.Atoi(input)
		if convErr != nil || number < 1 || number > len(f.Checklist) {
			o.Println("enter an item number (1-" + strconv.Itoa(len(f.Checklist)) + ") or q")

			continue
		}

		f, err = eng.Toggle(f.ID, number-1, actor)
		if err != nil {
			return err
		}
	}
}

// checklistPrompt returns a line reader for the session plus its cleanup.
// The line editor only engages on the real terminal; any other input (a
// pipe, an injected reader) is consumed line by line so the session stays
// scriptable.
func checklistPrompt(o *IO, in io.Reader) (func() (string, error), func()) {
	if in == os.Stdin && liner.TerminalSupported() {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)

		return func() (string, error) { return state.Prompt("checklist> ") },
			func() { _ = state.Close() }
	}

	if in == nil {
		in = strings.NewReader("")
	}

	scanner := bufio.NewScanner(in)

	return func() (string, error) {
		o.Printf("checklist> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}

			return "", io.EOF
		}

		return scanner.Text(), nil
	}, func() {}
}
