package helpers

import (
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// ApplyFilter evaluates a JMESPath expression against any JSON-serializable
// value. An empty expression returns the value unchanged.
func ApplyFilter(value interface{}, expression string) (interface{}, error) {
	if expression == "" {
		return value, nil
	}

	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}

	// jmespath only walks plain maps and slices
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	result, err := jp.Search(data)
	if err != nil {
		return nil, fmt.Errorf("failed to apply filter: %w", err)
	}
	return result, nil
}

// PrintJSON writes value as indented JSON to stdout
func PrintJSON(value interface{}) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
