package cli

import (
	"context"
	"errors"
	"fmt"

	"sitectl/internal/store"

	flag "github.com/spf13/pflag"
)

var (
	errPathRequired  = errors.New("path is required")
	errValueRequired = errors.New("value is required")
	errItemsRequired = errors.New("at least one item is required")
)

// GetCmd returns the get command.
func GetCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("get", flag.ContinueOnError),
		Usage: "get <path>",
		Short: "Print the value at a dotted path",
		Long: "Print the scalar value at a dotted path, e.g. sites.mysite.recipe.\n" +
			"A list-valued path prints one item per line.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errPathRequired
			}

			st, err := openConfigStore(cfg)
			if err != nil {
				return err
			}

			value, err := st.Get(args[0])
			if errors.Is(err, store.ErrTypeMismatch) {
				items, arrErr := st.GetArray(args[0])
				if arrErr != nil {
					return err
				}

				for _, item := range items {
					o.Println(item)
				}

				return nil
			}

			if err != nil {
				return err
			}

			o.Println(value)

			return nil
		},
	}
}

// SetCmd returns the set command.
func SetCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("set", flag.ContinueOnError),
		Usage: "set <path> <value>",
		Short: "Set the scalar field at a dotted path",
		Long: "Set the scalar field at a dotted path, creating the field if its\n" +
			"parent record exists. Everything else in the file is left untouched.",
		Exec: func(_ context.Context, _ *IO, args []string) error {
			if len(args) < 1 {
				return errPathRequired
			}

			if len(args) != 2 {
				return errValueRequired
			}

			st, err := openConfigStore(cfg)
			if err != nil {
				return err
			}

			return st.UpdateField(args[0], args[1])
		},
	}
}

// AppendCmd returns the append command.
func AppendCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("append", flag.ContinueOnError),
		Usage: "append <path> <item>...",
		Short: "Append items to the list at a dotted path",
		Long: "Append items to the list at a dotted path. Items already present\n" +
			"are skipped; appending the same items twice is a no-op.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errPathRequired
			}

			if len(args) < 2 {
				return errItemsRequired
			}

			st, err := openConfigStore(cfg)
			if err != nil {
				return err
			}

			added, err := st.AppendListItems(args[0], args[1:])
			if err != nil {
				return err
			}

			o.Println(fmt.Sprintf("added %d item(s)", added))

			return nil
		},
	}
}

// LsCmd returns the ls command.
func LsCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("ls", flag.ContinueOnError),
		Usage: "ls [section]",
		Short: "List record names under a section",
		Long: "List the record names under a dotted section path, in document\n" +
			"order. With no argument, lists the top-level sections.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			section := ""
			if len(args) > 0 {
				section = args[0]
			}

			st, err := openConfigStore(cfg)
			if err != nil {
				return err
			}

			names, err := st.RecordNames(section)
			if err != nil {
				return err
			}

			for _, name := range names {
				o.Println(name)
			}

			return nil
		},
	}
}
