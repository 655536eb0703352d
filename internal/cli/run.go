package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"sitectl/internal/fs"
	"sitectl/internal/store"
	"sitectl/internal/verify"

	flag "github.com/spf13/pflag"
)

const (
	minArgs      = 2
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

// Run is the main entry point. Returns exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	if len(args) < minArgs {
		defaults := DefaultConfig()
		printUsage(NewIO(out, errOut), commands(&defaults, env, in))

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride:    flags.workDir,
		ConfigPath:         flags.configPath,
		StoreOverride:      flags.storePath,
		VerifyFileOverride: flags.verifyPath,
		Env:                env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	o := NewIO(out, errOut)
	cmds := commands(&cfg, env, in)

	if len(flags.remaining) == 0 {
		printUsage(o, cmds)

		return 0
	}

	name := flags.remaining[0]
	if name == "-h" || name == helpFlag {
		printUsage(o, cmds)

		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			<-sigCh
			cancel()
		}()
	}

	for _, cmd := range cmds {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, flags.remaining[1:])
		}
	}

	fprintln(errOut, "error: unknown command:", name)
	printUsage(NewIO(errOut, errOut), cmds)

	return 1
}

func commands(cfg *Config, env map[string]string, in io.Reader) []*Command {
	return []*Command{
		GetCmd(cfg),
		SetCmd(cfg),
		AppendCmd(cfg),
		LsCmd(cfg),
		AddSiteCmd(cfg),
		RemoveSiteCmd(cfg),
		SiteCmd(cfg),
		RegisterCmd(cfg),
		VerifyCmd(cfg, env),
		UnverifyCmd(cfg, env),
		CheckCmd(cfg),
		StatusCmd(cfg),
		SummaryCmd(cfg),
		DetailsCmd(cfg),
		ToggleCmd(cfg, env),
		NoteCmd(cfg, env),
		ChecklistCmd(cfg, env, in),
		MigrateCmd(cfg),
		PruneBackupsCmd(cfg),
		PrintConfigCmd(cfg),
	}
}

type globalFlags struct {
	workDir    string
	configPath string
	storePath  string
	verifyPath string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	targets := []struct {
		short  string
		long   string
		target *string
	}{
		{"-C", "--cwd", &flags.workDir},
		{"-c", "--config", &flags.configPath},
		{"", "--store", &flags.storePath},
		{"", "--verify-file", &flags.verifyPath},
	}

	for _, t := range targets {
		if (arg == t.short && t.short != "") || arg == t.long {
			if idx+1 >= len(args) {
				return consumedNone, fmt.Errorf("%w: %s", ErrFlagRequiresArg, arg)
			}

			*t.target = args[idx+1]

			return consumedTwo, nil
		}

		if after, ok := strings.CutPrefix(arg, t.long+"="); ok {
			*t.target = after

			return consumedOne, nil
		}
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok && after != "" && !strings.HasPrefix(after, "-") {
		flags.workDir = after

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

// openConfigStore opens the site configuration document.
func openConfigStore(cfg *Config) (*store.Store, error) {
	st, err := store.Open(fs.NewReal(), cfg.ConfigFileAbs)
	if err != nil {
		return nil, err
	}

	st.BackupDir = cfg.BackupDirAbs

	return st, nil
}

// openEngine opens the verification document and wraps it in an engine.
// Tracked-file paths resolve against the effective working directory.
func openEngine(cfg *Config) (*verify.Engine, error) {
	st, err := store.Open(fs.NewReal(), cfg.VerifyFileAbs)
	if err != nil {
		return nil, err
	}

	st.BackupDir = cfg.BackupDirAbs

	return verify.New(st, fs.NewReal(), cfg.EffectiveCwd), nil
}

var errActorRequired = errors.New("actor is required (use --actor, set actor in config, or export $USER)")

// resolveActor picks the acting user: --actor flag, then the actor config
// key, then $USER.
func resolveActor(flagSet *flag.FlagSet, cfg *Config, env map[string]string) (string, error) {
	if flagSet.Changed("actor") {
		actor, _ := flagSet.GetString("actor")
		if actor != "" {
			return actor, nil
		}

		return "", errActorRequired
	}

	if cfg.Actor != "" {
		return cfg.Actor, nil
	}

	if user := env["USER"]; user != "" {
		return user, nil
	}

	return "", errActorRequired
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(o *IO, cmds []*Command) {
	o.Println(`sitectl - site configuration store and feature verification

Usage: sitectl [options] <command> [args]

Options:
  -C, --cwd <dir>       Run as if started in <dir>
  -c, --config <file>   Use specified tool config file
  --store <file>        Site configuration document (default: config.yml)
  --verify-file <file>  Verification document (default: verification.yml)

Commands:`)

	for _, cmd := range cmds {
		o.Println(cmd.HelpLine())
	}
}
