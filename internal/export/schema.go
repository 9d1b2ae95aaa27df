package export

// BuildReviewJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Every JSON export is validated against it locally before the
// bytes leave the process, so downstream EHR importers can rely on the shape.
func BuildReviewJSONSchema() map[string]any {
	duplicate := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"existing_id":   map[string]any{"type": "string", "minLength": 1},
			"existing_name": map[string]any{"type": "string"},
			"type":          map[string]any{"type": "string"},
			"similarity":    map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"suggested":     map[string]any{"type": "string", "enum": []string{"merge", "keep-both", "skip"}},
		},
		"required": []string{"existing_id", "similarity", "suggested"},
	}

	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"type":        map[string]any{"type": "string", "minLength": 1},
			"label":       map[string]any{"type": "string", "minLength": 1},
			"confidence":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"fields":      map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
			"source_span": map[string]any{"type": "string"},
			"disposition": map[string]any{"type": "string", "enum": []string{"accept", "reject", "modify"}},
			"modifications": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"duplicates": map[string]any{"type": "array", "items": duplicate},
		},
		"required": []string{"type", "label", "confidence", "disposition"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"job_id":     map[string]any{"type": "string", "pattern": `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`},
			"created_at": map[string]any{"type": "string", "minLength": 1},
			"items":      map[string]any{"type": "array", "items": item},
		},
		"required": []string{"job_id", "created_at", "items"},
	}
}
