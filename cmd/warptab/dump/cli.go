package dump

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/load"
	warptab_testing "github.com/pgavlin/warptab/testing"
	"github.com/pgavlin/warptab/wast"
)

// recorder records the modules instantiated by a script in instantiation order.
type recorder struct {
	modules []exec.Module
}

func (r *recorder) ModuleAllocated(m exec.AllocatedModule) error {
	return nil
}

func (r *recorder) ModuleInstantiated(m exec.Module) error {
	r.modules = append(r.modules, m)
	return nil
}

type reporter struct {
	w io.Writer
}

func (r *reporter) Error(args ...interface{}) {
	fmt.Fprintln(r.w, args...)
}

func (r *reporter) Logf(format string, args ...interface{}) {
	exec.Logger().Info(fmt.Sprintf(format, args...))
}

// loadTables runs the module, register, and invoke commands of the script at path and returns the tables of
// each module it instantiated. Assertions are skipped.
func loadTables(path string, errs io.Writer) ([]moduleTable, error) {
	script, err := load.LoadScriptFile(path)
	if err != nil {
		return nil, err
	}

	var rec recorder
	env, err := warptab_testing.NewEnvironment(load.Interpret, &rec)
	if err != nil {
		return nil, err
	}

	r := &reporter{w: errs}
	for _, command := range script.Commands {
		switch command.(type) {
		case wast.ModuleCommand, *wast.Register, *wast.Invoke:
			env.RunCommand(r, command, false)
		}
	}

	var tables []moduleTable
	for i, m := range rec.modules {
		lister, ok := m.(exec.TableLister)
		if !ok || m.Name() == "spectest" {
			continue
		}

		name := m.Name()
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		for j, t := range lister.Tables() {
			tables = append(tables, moduleTable{module: name, index: j, table: t})
		}
	}

	exec.Logger().Debug("loaded tables", zap.String("script", path), zap.Int("modules", len(rec.modules)), zap.Int("tables", len(tables)))
	return tables, nil
}

func Command() *cobra.Command {
	var stats bool

	command := &cobra.Command{
		Use:   "dump [path to script]",
		Short: "Dump the tables of WebAssembly scripts",
		Long:  "Dump the slot layout of every table instantiated by a WebAssembly script",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one argument")
			}

			tables, err := loadTables(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if stats {
				return dumpStats(cmd.OutOrStdout(), tables)
			}
			return dumpLayout(cmd.OutOrStdout(), tables)
		},
	}

	command.PersistentFlags().BoolVarP(&stats, "stats", "s", false, "dump table statistics in CSV format")

	return command
}
