package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/job-tracker/internal/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the OpenAPI document",
	Long:  "Renders the OpenAPI 3 description of the REST API as JSON or YAML, to stdout or a file.",
	RunE:  runOpenAPI,
}

var (
	openapiFormat string
	openapiOut    string
)

func init() {
	openapiCmd.Flags().StringVarP(&openapiFormat, "format", "f", "json", "Output format: json or yaml")
	openapiCmd.Flags().StringVarP(&openapiOut, "out", "o", "", "Write to this file instead of stdout")
	rootCmd.AddCommand(openapiCmd)
}

func runOpenAPI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	doc := server.BuildOpenAPI(server.DocsConfig{
		Title:       cfg.Docs.Title,
		Version:     cfg.Docs.Version,
		Description: cfg.Docs.Description,
		ServerURL:   cfg.DocsServerURL(),
	})

	var out []byte
	switch openapiFormat {
	case "json":
		out, err = json.MarshalIndent(doc, "", "  ")
		out = append(out, '\n')
	case "yaml":
		out, err = yaml.Marshal(doc)
	default:
		return fmt.Errorf("unknown format %q: must be json or yaml", openapiFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to render OpenAPI document: %w", err)
	}

	if openapiOut == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(openapiOut, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", openapiOut)
	return nil
}
