package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/classify_lead.md
var classifyLeadPromptRaw string

// ClassifyLeadTemplate is the parsed prompt template for lead classification.
// Parsed once at package init; reused on every Classify call.
var ClassifyLeadTemplate = template.Must(template.New("classify_lead").Parse(classifyLeadPromptRaw))
