package ai

import (
	"fmt"
	"strings"
)

// DefaultExtractionHints describes the JSON document the extraction model
// must return. It is used when no hints file is configured.
const DefaultExtractionHints = `Return one JSON object with exactly these keys:

{
  "pollutants": {"<category>": ["<pollutant>", ...]},
  "pollution_sources": {"<category>": ["<source>", ...]},
  "mitigation_measures": {"<category>": ["<measure>", ...]},
  "meteorological_factors": ["<factor>", ...],
  "street_canyons": ["<street canyon characteristic>", ...],
  "pollutant_source_relations": [["<pollutant>", "<source>"], ...],
  "source_mitigation_relations": [["<source>", "<measure>"], ...],
  "meteorological_dispersion_relations": [
    {"meteorological_factor": {"type": "<factor>", "range": "<optional range>"}, "pollutant": "<pollutant>"}
  ],
  "street_canyon_dispersion_relations": [
    {"street_canyon_description": "<street canyon characteristic>", "pollutant": "<pollutant>"}
  ]
}

- Every name used in a relation must also be listed in the matching entity section.
- Use the same spelling for an entity everywhere in the document.
- Use empty objects or arrays for sections without information.`

// ExtractPrompt is the extraction prompt template. Arguments: ontology
// reference block, format hints, text.
const ExtractPrompt = `
You are an environmental knowledge extraction agent.

Your task is to extract structured knowledge about urban air quality based on the provided ontology definitions and instructions.
Use the ontology entities, attributes, and categories described below to guide your extraction:

%s

Additionally, strictly follow the JSON format provided below:

%s

Text:
"""
%s
"""

Provide ONLY the structured JSON. Do NOT include any additional text.
`

// QueryPrompt answers a question from retrieved graph nodes. Arguments:
// context block, question.
const QueryPrompt = `
# Task Context
You are a helpful assistant that answers questions about urban air quality based only on the provided data from a knowledge graph.

# Background Data
The data is provided in the following format:

<label>: <name> (category: <category>, score: <similarity>)

## Data
%s

# Detailed Task Description & Rules
- Do not add any information that is not present in the provided data.
- Prefer entities with a higher similarity score when they conflict.
- If you cannot find an answer, respond with: "I don't know, the knowledge graph has no information about that." in the language of the user.

# Question
%s

# Output Formatting
- Return only the direct answer (no introduction or concluding summary).
- Always respond in the same language as the question.
`

// NoDataAnswer is returned without calling the model when retrieval finds
// nothing.
const NoDataAnswer = "There is no information available in the knowledge graph for this question."

// BuildExtractionPrompt renders ExtractPrompt. A nil ontology renders an
// empty reference block and empty hints fall back to DefaultExtractionHints.
func BuildExtractionPrompt(text string, ontology *Ontology, hints string) string {
	reference := ""
	if ontology != nil {
		reference = ontology.Describe()
	}
	if strings.TrimSpace(hints) == "" {
		hints = DefaultExtractionHints
	}
	return fmt.Sprintf(ExtractPrompt, reference, hints, text)
}
