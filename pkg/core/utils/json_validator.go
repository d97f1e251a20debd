package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// The analyst agents are instructed to answer with a fenced JSON block of
// figures so the pipeline can cross-check their numbers against the
// calculation engine. Models routinely wrap that block in prose or emit
// slightly broken JSON; the helpers here recover the structured part.

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSONBlock returns the content of the first fenced code block, or
// the trimmed input when no fence is present.
func ExtractJSONBlock(input string) string {
	if m := jsonFenceRe.FindStringSubmatch(input); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(input)
}

// ValidateJSON unmarshals jsonData into schema and then enforces presence
// for fields tagged `strict:"nonzero"`. Zero is a legitimate value for most
// deal figures (a break-even cash flow is exactly 0), so strictness is
// opt-in per field rather than blanket.
func ValidateJSON(jsonData string, schema interface{}) error {
	if err := json.Unmarshal([]byte(jsonData), schema); err != nil {
		return fmt.Errorf("JSON_STRUCTURAL_ERROR: %v", err)
	}

	v := reflect.ValueOf(schema)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	for i := 0; i < v.NumField(); i++ {
		sf := v.Type().Field(i)
		if sf.Tag.Get("strict") != "nonzero" {
			continue
		}
		if v.Field(i).IsZero() {
			// Name the field so the agent can be re-prompted for it.
			return fmt.Errorf("JSON_SCHEMA_VIOLATION: Required field '%s' is missing or zero", sf.Name)
		}
	}
	return nil
}

// RepairJSON attempts to fix common JSON errors in model output: missing
// quotes around keys, single quotes, unclosed brackets, trailing commas,
// TRUE/FALSE/Null casing, comments, stray markdown fences.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// MustRepairJSON is like RepairJSON but returns an empty object on failure,
// for callers that need some JSON no matter what.
func MustRepairJSON(malformedJSON string) string {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "{}"
	}
	return repaired
}

// ParseHJSON parses human-friendly JSON (comments, unquoted keys, optional
// commas, multiline strings) and returns standard JSON. Lenient enough for
// hand-written assumption overrides and the sloppier model outputs.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(hjsonData), &result); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return string(jsonBytes), nil
}

// ParseHJSONToStruct parses Hjson directly into a Go struct.
func ParseHJSONToStruct(hjsonData string, schema interface{}) error {
	if err := hjson.Unmarshal([]byte(hjsonData), schema); err != nil {
		return fmt.Errorf("HJSON_UNMARSHAL_ERROR: %v", err)
	}
	return nil
}

// SmartParse tries multiple strategies to get structured figures out of an
// agent response, from strictest to most lenient:
//  1. standard JSON on the fenced block
//  2. JSON repair
//  3. Hjson
func SmartParse(input string, schema interface{}) (string, error) {
	candidate := ExtractJSONBlock(input)

	if err := json.Unmarshal([]byte(candidate), schema); err == nil {
		return candidate, nil
	}

	if repaired, err := RepairJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	if converted, err := ParseHJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(converted), schema); err == nil {
			return converted, nil
		}
	}

	return "", fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
}
