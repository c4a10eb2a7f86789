package config

import (
	"encoding/json"
	"fmt"
	"strings"

	uperrors "github.com/systmms/upshift/internal/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// definitionSchema is the JSON Schema for upshift.yaml. The YAML document is
// converted to JSON before validation.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "version": {"type": "integer", "minimum": 0},
    "endpoint": {"type": "string", "minLength": 1},
    "accessKey": {"type": "string"},
    "secretKey": {"type": "string"},
    "credentialSource": {"enum": ["", "config", "env", "keyring", "aws"]},
    "aws": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "secretId": {"type": "string", "minLength": 1},
        "region": {"type": "string"},
        "profile": {"type": "string"},
        "accessKeyId": {"type": "string"},
        "secretAccessKey": {"type": "string"}
      },
      "required": ["secretId"]
    },
    "tls": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "caCert": {"type": "string"},
        "insecureSkipVerify": {"type": "boolean"}
      }
    },
    "timeouts": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "statusCheckFrequencyMs": {"type": "integer", "minimum": 1},
        "serviceUpgradedTimeoutMs": {"type": "integer", "minimum": 1},
        "serviceActiveTimeoutMs": {"type": "integer", "minimum": 1},
        "requestTimeoutMs": {"type": "integer", "minimum": 1}
      }
    }
  },
  "required": ["endpoint"]
}`

// validateSchema checks a raw upshift.yaml document against the schema.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return uperrors.ConfigError{
			Field:      "yaml",
			Message:    "invalid YAML syntax: " + err.Error(),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert config to JSON for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewBytesLoader(jsonDoc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return uperrors.ConfigError{
			Field:      "schema",
			Message:    "configuration does not match the expected structure: " + strings.Join(problems, "; "),
			Suggestion: "Compare your upshift.yaml against the documented fields",
		}
	}

	return nil
}
