package llm

import (
	"encoding/json"
	"fmt"

	"github.com/swaggest/jsonschema-go"
)

// SchemaFromStruct generates a JSON Schema from a Go struct using the swaggest/jsonschema-go library
//
// Example:
//
//	type SearchArgs struct {
//	    Query string `json:"query" required:"true" description:"Search terms"`
//	    Limit int    `json:"limit,omitempty" minimum:"1" maximum:"20"`
//	}
//	schema, err := SchemaFromStruct(SearchArgs{})
func SchemaFromStruct(structType interface{}) (interface{}, error) {
	reflector := jsonschema.Reflector{}

	schema, err := reflector.Reflect(structType)
	if err != nil {
		return nil, fmt.Errorf("failed to reflect struct to JSON schema: %w", err)
	}

	return schema, nil
}

// SchemaFromStructAsMap generates a JSON Schema as map[string]interface{} from a Go struct,
// the form payload builders embed in tool definitions
func SchemaFromStructAsMap(structType interface{}) (map[string]interface{}, error) {
	schema, err := SchemaFromStruct(structType)
	if err != nil {
		return nil, err
	}

	jsonBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}

	var schemaMap map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema JSON to map: %w", err)
	}

	return schemaMap, nil
}

// NewFunctionTool builds a function tool definition whose parameters schema is
// reflected from argsType
func NewFunctionTool(name, description string, argsType interface{}) (Tool, error) {
	params, err := SchemaFromStructAsMap(argsType)
	if err != nil {
		return Tool{}, fmt.Errorf("tool %s: %w", name, err)
	}
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}, nil
}
