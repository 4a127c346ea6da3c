package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/pgavlin/warptab/cmd/warptab/dump"
	"github.com/pgavlin/warptab/cmd/warptab/run"
	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/internal/logging"
)

var version = "<unknown>"

func configureCLI() *cobra.Command {
	var cpuProfile string
	var memProfile string
	var logLevel string

	rootCommand := &cobra.Command{
		Use:           "warptab",
		Short:         "warptab WebAssembly table engine",
		Long:          "warptab - runs and inspects WebAssembly table scripts",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logLevel)
			if err != nil {
				return err
			}
			exec.SetLogger(logger)

			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return err
				}
				if err := pprof.StartCPUProfile(f); err != nil {
					f.Close()
					return err
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			exec.Logger().Sync()

			if cpuProfile != "" {
				pprof.StopCPUProfile()
			}

			if memProfile != "" {
				f, err := os.Create(memProfile)
				if err != nil {
					return err
				}
				defer f.Close()

				runtime.GC()
				if err := pprof.WriteHeapProfile(f); err != nil {
					return err
				}
			}

			return nil
		},
	}

	rootCommand.AddCommand(dump.Command())
	rootCommand.AddCommand(run.Command())

	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "", "log at or above this level (debug, info, warn, error)")
	rootCommand.PersistentFlags().StringVar(&cpuProfile, "cpu", "", "emit Go CPU profile data to this path")
	rootCommand.PersistentFlags().StringVar(&memProfile, "mem", "", "emit Go memory profile data to this path")

	rootCommand.PersistentFlags().MarkHidden("cpu")
	rootCommand.PersistentFlags().MarkHidden("mem")

	return rootCommand
}

func main() {
	rootCommand := configureCLI()

	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
