package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"aspio/parser"
)

var checkCmd = &cobra.Command{
	Use:   "check [program.dl...]",
	Short: "Validate the annotations embedded in ASP programs",
	Long: `Parses the %! annotations of every given program and reports the
declared input parameters, mapped predicates and output names. Exits
non-zero when any annotation fails to parse or validate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	failed := false
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		in, out, err := parser.ParseEmbedded(string(data))
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			failed = true
			continue
		}
		var parts []string
		if in != nil {
			parts = append(parts, fmt.Sprintf("INPUT(%s), %d predicate mapping(s)",
				strings.Join(in.Params, ", "), len(in.Predicates)))
		}
		if out != nil {
			parts = append(parts, fmt.Sprintf("OUTPUT{%s}, %d helper rule(s)",
				strings.Join(out.Names(), ", "), len(out.AdditionalRules())))
		}
		if len(parts) == 0 {
			parts = append(parts, "no annotations")
		}
		fmt.Printf("%s: %s\n", path, strings.Join(parts, "; "))
	}
	if failed {
		return fmt.Errorf("annotation check failed")
	}
	return nil
}
