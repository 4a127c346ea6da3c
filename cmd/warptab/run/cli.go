package run

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/internal/logging"
	"github.com/pgavlin/warptab/load"
	warptab_testing "github.com/pgavlin/warptab/testing"
)

type reporter struct {
	w        io.Writer
	path     string
	failures int
}

func (r *reporter) Error(args ...interface{}) {
	r.failures++
	fmt.Fprintf(r.w, "%v:%v\n", r.path, fmt.Sprint(args...))
}

func (r *reporter) Logf(format string, args ...interface{}) {
	exec.Logger().Info(fmt.Sprintf(format, args...), zap.String("script", r.path))
}

type options struct {
	strict   bool
	maxDepth uint
	ignore   map[string][]string
	modules  exec.ModuleResolver
}

func runScript(w io.Writer, path string, opts *options) (int, error) {
	script, err := load.LoadScriptFile(path)
	if err != nil {
		return 0, fmt.Errorf("loading %v: %w", path, err)
	}

	env, err := warptab_testing.NewEnvironmentWithResolver(load.Interpret, opts.modules)
	if err != nil {
		return 0, err
	}
	env.SetMaxDepth(opts.maxDepth)

	r := &reporter{w: w, path: path}
	env.RunScript(r, script, opts.strict, opts.ignore[filepath.Base(path)])

	exec.Logger().Debug("ran script",
		zap.String("script", path),
		zap.Int("commands", len(script.Commands)),
		zap.Int("failures", r.failures))
	return r.failures, nil
}

func Command() *cobra.Command {
	var strict bool
	var maxDepth uint
	var configPath string
	var modulesDir string

	command := &cobra.Command{
		Use:   "run [paths to scripts]",
		Short: "Run WebAssembly table scripts",
		Long:  "Run WebAssembly scripts and report the commands whose assertions fail.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("expected at least one argument")
			}

			opts := options{strict: strict, maxDepth: maxDepth}
			if modulesDir != "" {
				opts.modules = load.NewFSResolver(os.DirFS(modulesDir), load.Interpret)
			}
			if configPath != "" {
				c, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				if c.Strict != nil && !cmd.Flags().Changed("strict") {
					opts.strict = *c.Strict
				}
				if c.MaxDepth != nil && !cmd.Flags().Changed("max-depth") {
					opts.maxDepth = *c.MaxDepth
				}
				if c.LogLevel != "" && !cmd.Flags().Changed("log-level") {
					logger, err := logging.New(c.LogLevel)
					if err != nil {
						return err
					}
					exec.SetLogger(logger)
				}
				opts.ignore = c.Ignore
			}

			total := 0
			for _, path := range args {
				failures, err := runScript(cmd.OutOrStdout(), path, &opts)
				if err != nil {
					return err
				}
				total += failures
			}

			if total != 0 {
				return fmt.Errorf("%v failures in %v scripts", total, len(args))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %v scripts\n", len(args))
			return nil
		},
	}

	command.PersistentFlags().BoolVarP(&strict, "strict", "s", false, "require exact failure messages for invalid modules")
	command.PersistentFlags().UintVar(&maxDepth, "max-depth", warptab_testing.DefaultMaxDepth, "the maximum call depth")
	command.PersistentFlags().StringVarP(&configPath, "config", "c", "", "read settings from the specified TOML file")
	command.PersistentFlags().StringVarP(&modulesDir, "modules", "m", "", "resolve imports of unregistered modules to text modules in this directory")

	return command
}
