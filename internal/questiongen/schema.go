package questiongen

import "github.com/abhisek/adaptiq/internal/llm"

// BatchSchema defines the JSON schema for LLM question batches.
var BatchSchema = &llm.Schema{
	Name:        "assessment-questions",
	Description: "A batch of assessment questions with answers, hints and feedback",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type": map[string]any{
							"type": "string",
							"enum": []any{"multiple-choice", "true-false", "short-answer", "essay", "fill-blank"},
						},
						"content": map[string]any{
							"type":        "string",
							"description": "The question prompt shown to the student",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 options for multiple-choice. Empty otherwise.",
						},
						"correct_answer": map[string]any{
							"type":        "string",
							"description": "Option text, \"true\"/\"false\", or the expected answer. Empty for essays.",
						},
						"acceptable_answers": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Every accepted answer for fill-blank questions.",
						},
						"explanation":        map[string]any{"type": "string"},
						"hints":              map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"feedback_correct":   map[string]any{"type": "string"},
						"feedback_incorrect": map[string]any{"type": "string"},
					},
					"required": []any{
						"type", "content", "options", "correct_answer", "acceptable_answers",
						"explanation", "hints", "feedback_correct", "feedback_incorrect",
					},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
