package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fraiseql/fraiseql-engine/internal/schema"
)

func depgraphCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "depgraph",
		Short: "Export the schema's type dependency graph as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepgraph(schemaPath)
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "./config/schema.yml", "path to the declarative schema YAML file")
	return cmd
}

func runDepgraph(schemaPath string) error {
	s, err := schema.LoadYAMLFile(schemaPath)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		exitCode = 2
		return err
	}

	g, err := schema.Build(s)
	if err != nil {
		return err
	}

	export := g.Export()
	out, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if export.Stats.CycleCount > 0 {
		exitCode = 2
		log.Warn("schema contains dependency cycles", zap.Int("cycle_count", export.Stats.CycleCount))
	}
	return nil
}
