package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check survey export files and story script files",
	}

	surveyCmd := &cobra.Command{
		Use:   "survey <file.json>...",
		Short: "Validate downloaded survey files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateAll(args, validateSurveyFile)
		},
		SilenceUsage: true,
	}

	scriptCmd := &cobra.Command{
		Use:   "script <file.json>...",
		Short: "Validate story script files for DATA_DIR/scripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateAll(args, validateScriptFile)
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(surveyCmd, scriptCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateAll(files []string, check func(string) *Report) error {
	failed := 0
	for _, filename := range files {
		fmt.Printf("Validating %s...\n", filename)
		report := check(filename)
		for _, w := range report.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		if err := report.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed++
			continue
		}
		fmt.Println("  ok")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(files))
	}
	return nil
}
