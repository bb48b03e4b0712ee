// Schema Generator
//
// Generates JSON Schema files for the HTTP API types so clients can validate
// requests and responses without reading Go code.
//
// Usage:
//
//	go run ./cmd/schema-gen [-out dir]
//
// Output:
//
//	schemas/optimize.json
//	schemas/service.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/kosarica/purchase-optimizer/internal/handlers"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

var groups = []SchemaGroup{
	{
		Name: "optimize",
		Types: []any{
			handlers.ItemRequest{},
			handlers.RetailerRequest{},
			handlers.OptionsRequest{},
			handlers.OptimizeRequest{},
			handlers.RetailerBillResponse{},
			handlers.OptimizeResponse{},
		},
		Output: "optimize.json",
	},
	{
		Name: "service",
		Types: []any{
			handlers.SolversResponse{},
			handlers.HealthResponse{},
			handlers.ErrorResponse{},
		},
		Output: "service.json",
	},
}

func main() {
	outputDir := flag.String("out", "schemas", "output directory")
	flag.Parse()

	if err := run(*outputDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("Schema generation complete!")
}

func run(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, group := range groups {
		outputPath := filepath.Join(outputDir, group.Output)
		if err := writeSchema(generateGroupSchema(group), outputPath); err != nil {
			return fmt.Errorf("failed to write %s: %w", group.Output, err)
		}
		fmt.Printf("Generated %s\n", outputPath)
	}
	return nil
}

// generateGroupSchema merges the definitions of every type in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{}

	definitions := make(map[string]any)
	for _, t := range group.Types {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://kosarica.hr/schemas/purchase-optimizer/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for the purchase optimizer %s API types", group.Name),
		"$defs":       definitions,
	}
}

func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
