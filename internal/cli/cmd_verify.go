package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// VerifyCmd returns the verify command.
func VerifyCmd(cfg *Config, env map[string]string) *Command {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.String("actor", "", "Who is vouching for the feature")

	return &Command{
		Flags: fs,
		Usage: "verify <id> [--actor name]",
		Short: "Mark a feature verified",
		Long: "Mark a feature verified by the acting user, recording a fingerprint\n" +
			"of its tracked files. A later edit to any tracked file invalidates\n" +
			"the verification on the next check run.",
		Exec: func(_ context.Context, o *IO, args []string) error {
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

			err = eng.Verify(args[0], actor)
			if err != nil {
				return err
			}

			o.Println("verified", args[0], "by", actor)

			return nil
		},
	}
}

// UnverifyCmd returns the unverify command.
func UnverifyCmd(cfg *Config, env map[string]string) *Command {
	fs := flag.NewFlagSet("unverify", flag.ContinueOnError)
	fs.String("actor", "", "Who is withdrawing the verification")

	return &Command{
		Flags: fs,
		Usage: "unverify <id> [--actor name]",
		Short: "Withdraw a feature's verification",
		Exec: func(_ context.Context, o *IO, args []string) error {
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

			err = eng.Unverify(args[0], actor)
			if err != nil {
				return err
			}

			o.Println("unverified", args[0])

			return nil
		},
	}
}
