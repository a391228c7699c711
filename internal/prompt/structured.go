// Package prompt renders sectioned prompts whose expected answer is the
// JSON Schema of a Go type, and decodes the model's reply into that type.
//
// Sections appear in a fixed order: PURPOSE, BACKGROUND, INPUT,
// OUTPUT_SCHEMA, RULES, OUTPUT_FORMAT, LANGUAGE. Empty sections are left out.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Spec defines the sections for a structured prompt.
type Spec struct {
	Purpose    string
	Background string
	// Schema is a value of the response type, reflected into OUTPUT_SCHEMA.
	Schema       any
	Rules        []string
	OutputFormat string
	Language     string
}

// Build renders the prompt. input is serialized into the [INPUT] section.
func Build(spec Spec, input any) (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", fmt.Errorf("prompt: purpose is empty")
	}
	if spec.Schema == nil {
		return "", fmt.Errorf("prompt: output schema is missing")
	}
	inputJSON, err := formatAnyJSON(input)
	if err != nil {
		return "", fmt.Errorf("prompt: encode input: %w", err)
	}
	schemaJSON, err := SchemaFor(spec.Schema)
	if err != nil {
		return "", fmt.Errorf("prompt: reflect schema: %w", err)
	}

	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", spec.Purpose)
	writeSection(&buf, "BACKGROUND", spec.Background)
	writeSection(&buf, "INPUT", inputJSON)
	writeSection(&buf, "OUTPUT_SCHEMA", schemaJSON)
	writeSection(&buf, "RULES", formatList(spec.Rules))
	writeSection(&buf, "OUTPUT_FORMAT", spec.OutputFormat)
	writeSection(&buf, "LANGUAGE", spec.Language)

	return strings.TrimSpace(buf.String()) + "\n", nil
}

// SchemaFor reflects v (a struct value or pointer) into an inline JSON Schema.
func SchemaFor(v any) (string, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := r.Reflect(v)
	schema.Version = ""
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatAnyJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
