package gemini

// GenerateContentRequest is the body of a generateContent call
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

// GenerationConfig requests structured JSON output conforming to a schema
type GenerationConfig struct {
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
	Temperature      *float32 `json:"temperature,omitempty"`
}

type SchemaType string

const (
	SchemaTypeObject SchemaType = "OBJECT"
	SchemaTypeArray  SchemaType = "ARRAY"
	SchemaTypeString SchemaType = "STRING"
)

type Schema struct {
	Type       SchemaType        `json:"type"`
	Properties map[string]Schema `json:"properties,omitempty"`
	Items      *Schema           `json:"items,omitempty"`
	Required   []string          `json:"required,omitempty"`
}
