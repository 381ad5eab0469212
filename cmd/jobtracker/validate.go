package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/schemas"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a job document against the job schema",
	Long:  "Checks a JSON job document the same way POST (create) or PUT (update) bodies are checked, and lists every violation.",
	RunE:  runValidate,
}

var (
	validateJSONFile string
	validateUpdate   bool
)

func init() {
	validateCmd.Flags().StringVar(&validateJSONFile, "json", "", "Path to the JSON job document (required)")
	validateCmd.Flags().BoolVar(&validateUpdate, "update", false, "Validate as a partial update instead of a create")
	if err := validateCmd.MarkFlagRequired("json"); err != nil {
		panic(fmt.Sprintf("failed to mark json flag as required: %v", err))
	}
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(validateJSONFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", validateJSONFile, err)
	}

	mode := schemas.CreateMode
	if validateUpdate {
		mode = schemas.UpdateMode
	}

	err = schemas.ValidateJob(data, mode)
	if err == nil {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Validation passed")
		return nil
	}

	var validationErr *apperrors.ValidationError
	if !errors.As(err, &validationErr) {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Validation failed:")
	for _, f := range validationErr.Fields {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  - %s: %s\n", f.Field, f.Message)
	}
	return fmt.Errorf("job document has %d schema violation(s)", len(validationErr.Fields))
}
