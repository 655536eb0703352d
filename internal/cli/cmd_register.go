package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"
)

var errFeatureIDRequired = errors.New("feature id is required")

// RegisterCmd returns the register command.
func RegisterCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.StringArrayP("file", "f", nil, "Tracked file, relative to the working directory (repeatable)")
	fs.StringArray("item", nil, "Checklist item text (repeatable)")

	return &Command{
		Flags: fs,
		Usage: "register <id> [flags]",
		Short: "Declare a feature for verification",
		Long: "Declare a feature: which files its implementation lives in and the\n" +
			"checklist a human walks to verify it. Starts out unverified.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errFeatureIDRequired
			}

			files, _ := fs.GetStringArray("file")
			items, _ := fs.GetStringArray("item")

			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			err = eng.Register(args[0], files, items)
			if err != nil {
				return err
			}

			o.Println("registered", args[0])

			return nil
		},
	}
}
