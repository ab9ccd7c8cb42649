package aitooling

import "encoding/json"

// MustMarshalJSON marshals a schema literal, panicking on failure.
func MustMarshalJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// EmptyJsonSchema is the schema of a tool that takes no arguments.
func EmptyJsonSchema() json.RawMessage {
	return ObjectSchema(map[string]interface{}{})
}

// ObjectSchema builds an object schema from properties; the named ones are required.
func ObjectSchema(properties map[string]interface{}, required ...string) json.RawMessage {
	if required == nil {
		required = []string{}
	}
	return MustMarshalJSON(map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	})
}

// StringProperty describes a string parameter.
func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}
