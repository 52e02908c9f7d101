package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagSAS string
	flagLog string
	flagLst string
	flagDir string
)

var exitCode int

var rootCmd = &cobra.Command{
	Use:   "gosas",
	Short: "gosas - a SAS-subset interpreter",
	Long: `gosas interprets DATA and PROC steps of the SAS language against an
in-memory catalog of libraries and datasets.

Batch mode writes the log and the listing to files:
  gosas --sas=program.sas --log=program.log --lst=program.lst

Without the three batch flags an interactive session starts.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagSAS != "" && flagLog != "" && flagLst != "" {
			code, err := runBatch(flagSAS, flagLog, flagLst, flagDir)
			exitCode = code
			return err
		}
		return runFrontend(flagDir)
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFrontend(flagDir)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSAS, "sas", "", "SAS source file (batch mode)")
	rootCmd.PersistentFlags().StringVar(&flagLog, "log", "", "log output file (batch mode)")
	rootCmd.PersistentFlags().StringVar(&flagLst, "lst", "", "listing output file (batch mode)")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", ".", "directory searched for gosas.toml and libraries.yaml")
	rootCmd.AddCommand(replCmd)
}

func main() {
	// Accept the single-dash batch form (-sas=PATH) next to --sas=PATH.
	for i, arg := range os.Args[1:] {
		for _, name := range []string{"-sas", "-log", "-lst"} {
			if arg == name || strings.HasPrefix(arg, name+"=") {
				os.Args[i+1] = "-" + arg
			}
		}
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = 2
		}
	}
	os.Exit(exitCode)
}
