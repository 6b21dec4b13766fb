package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/inspection-reports/constants"
)

// BuildReportJSONSchema returns a JSON-Schema for Report as a generic map.
// When sites is non-empty, header.site_id is restricted to those values.
func BuildReportJSONSchema(sites []string) map[string]any {
	siteID := map[string]any{"type": "string", "minLength": 1}
	if len(sites) > 0 {
		siteID = map[string]any{"type": "string", "enum": sites}
	}

	header := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"site_id":       siteID,
			"date":          map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"initial_notes": map[string]any{"type": "string"},
		},
		"required": []string{"site_id", "date"},
	}

	photo := map[string]any{
		"type": "object",
		"properties": map[string]any{
			// base64, as encoding/json writes []byte
			"data":  map[string]any{"type": "string", "contentEncoding": "base64"},
			"label": map[string]any{"type": "string"},
		},
		"required": []string{"data"},
	}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":    map[string]any{"type": "string", "minLength": 1},
			"depth":   map[string]any{"type": "string", "pattern": `^\s*-?\d+([.,]\d+)?\s*$`},
			"status":  map[string]any{"type": "string", "minLength": 1},
			"comment": map[string]any{"type": "string"},
			"photos": map[string]any{
				"type":     []string{"array", "null"},
				"items":    photo,
				"maxItems": constants.MaxPhotosPerItem,
			},
		},
		"required": []string{"type", "depth", "status"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"header":        header,
			"items":         map[string]any{"type": []string{"array", "null"}, "items": item},
			"closing_notes": map[string]any{"type": "string"},
		},
		"required": []string{"header"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("report.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("report.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// DecodeReport validates raw JSON against the report schema and decodes it.
func DecodeReport(data []byte, sites []string) (*Report, error) {
	if err := ValidateJSONAgainstSchema(BuildReportJSONSchema(sites), data); err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
