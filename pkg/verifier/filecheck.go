package verifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidateFileContent validates structured file content by extension without
// spawning a subprocess. Returns "" when valid or when the extension is not
// recognised.
func ValidateFileContent(filePath, content string) string {
	idx := strings.LastIndex(filePath, ".")
	if idx < 0 {
		return ""
	}
	switch filePath[idx+1:] {
	case "json":
		return validateJSON(content)
	case "yaml", "yml":
		return validateYAML(content)
	default:
		return ""
	}
}

func validateJSON(content string) string {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return fmt.Sprintf("JSON parse error: %v", err)
	}
	return ""
}

func validateYAML(content string) string {
	var v any
	if err := yaml.Unmarshal([]byte(content), &v); err != nil {
		return fmt.Sprintf("YAML parse error: %v", err)
	}
	return ""
}
