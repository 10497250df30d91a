package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"aspio"
)

var factsCmd = &cobra.Command{
	Use:   "facts [program.dl...]",
	Short: "Print the facts generated by the INPUT mapping",
	Long: `Runs only the input half of the pipeline: maps the JSON input
arguments through the programs' INPUT annotations and prints the
resulting facts, without invoking a solver.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFacts,
}

func init() {
	factsCmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file with the input argument array")
}

func runFacts(cmd *cobra.Command, args []string) error {
	prog := aspio.New()
	prog.Logger = logger
	for _, path := range args {
		if err := prog.AppendFile(path); err != nil {
			return err
		}
	}
	inputArgs, err := readInputArgs()
	if err != nil {
		return err
	}
	w := bufio.NewWriter(os.Stdout)
	if err := prog.WriteFacts(w, inputArgs...); err != nil {
		return err
	}
	return w.Flush()
}
