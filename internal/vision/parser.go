package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/model"
)

// wrapperKeys are the object keys known to hold the match array.
var wrapperKeys = []string{"results", "matches", "species"}

// shapeDetector extracts candidate match objects from a decoded payload.
type shapeDetector struct {
	detect func(root json.RawMessage) []json.RawMessage
	name   string
}

// detectors are tried in order; the first whose candidates yield a usable match wins.
var detectors = []shapeDetector{
	{name: "bare array", detect: detectBareArray},
	{name: "wrapped array", detect: detectWrappedArray},
	{name: "first array of objects", detect: detectFirstObjectArray},
}

// ParseMatches converts the model's textual answer into at most MaxMatches
// usable matches. Candidates missing required fields are dropped; an answer
// that yields none fails with common.ErrMalformedResponse.
func ParseMatches(content string) ([]model.Match, error) {
	cleaned := cleanMarkdownWrapper(content)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty payload", common.ErrMalformedResponse)
	}

	root := json.RawMessage(cleaned)
	if !json.Valid(root) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", common.ErrMalformedResponse)
	}

	for _, d := range detectors {
		candidates := d.detect(root)
		if len(candidates) == 0 {
			continue
		}

		matches := make([]model.Match, 0, model.MaxMatches)
		for _, raw := range candidates {
			m, ok := convertMatch(raw)
			if !ok {
				continue
			}
			matches = append(matches, m)
			if len(matches) == model.MaxMatches {
				break
			}
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}

	return nil, fmt.Errorf("%w: no usable matches in response", common.ErrMalformedResponse)
}

// cleanMarkdownWrapper strips code fences that models wrap JSON in despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.Contains(content, "```") {
		return content
	}

	if start := strings.Index(content, "```"); start >= 0 {
		rest := content[start+3:]
		// Drop a language tag such as ```json.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "[{") {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimPrefix(strings.TrimPrefix(rest, "json"), "JSON")
		}
		if end := strings.LastIndex(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		content = rest
	}
	return strings.TrimSpace(content)
}

func detectBareArray(root json.RawMessage) []json.RawMessage {
	var elems []json.RawMessage
	if err := json.Unmarshal(root, &elems); err != nil {
		return nil
	}
	return elems
}

func detectWrappedArray(root json.RawMessage) []json.RawMessage {
	fields, ok := orderedFields(root)
	if !ok {
		return nil
	}
	for _, key := range wrapperKeys {
		for _, f := range fields {
			if f.key != key {
				continue
			}
			var elems []json.RawMessage
			if err := json.Unmarshal(f.value, &elems); err == nil && len(elems) > 0 {
				return elems
			}
		}
	}
	return nil
}

func detectFirstObjectArray(root json.RawMessage) []json.RawMessage {
	fields, ok := orderedFields(root)
	if !ok {
		return nil
	}
	for _, f := range fields {
		var elems []json.RawMessage
		if err := json.Unmarshal(f.value, &elems); err != nil || len(elems) == 0 {
			continue
		}
		if allObjects(elems) {
			return elems
		}
	}
	return nil
}

type field struct {
	key   string
	value json.RawMessage
}

// orderedFields decodes a JSON object keeping its keys in document order.
func orderedFields(root json.RawMessage) ([]field, bool) {
	dec := json.NewDecoder(bytes.NewReader(root))

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, isDelim := tok.(json.Delim); !isDelim || delim != '{' {
		return nil, false
	}

	var fields []field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, isString := keyTok.(string)
		if !isString {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		fields = append(fields, field{key: key, value: value})
	}
	return fields, true
}

func allObjects(elems []json.RawMessage) bool {
	for _, e := range elems {
		trimmed := bytes.TrimSpace(e)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return false
		}
	}
	return true
}

// convertMatch builds a Match from one candidate object, or reports false
// when a required field is missing or the confidence is not a number.
func convertMatch(raw json.RawMessage) (model.Match, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return model.Match{}, false
	}

	confidence, ok := obj["confidence"].(float64)
	if !ok || math.IsNaN(confidence) {
		return model.Match{}, false
	}

	props := properties(obj["properties"])

	m := model.Match{
		ID:             uuid.NewString(),
		SpeciesID:      normalizeSpeciesID(stringField(obj, "speciesId")),
		CommonName:     stringField(obj, "commonName"),
		ScientificName: stringField(obj, "scientificName"),
		Confidence:     model.ClampConfidence(confidence),
		Hardness:       intValue(obj["hardness"]),
		GrainPattern:   textValue(obj["grainPattern"]),
		TypicalUses:    textValue(obj["typicalUses"]),
		Properties:     props,
		SimilarSpecies: stringList(obj["similarSpecies"]),
	}

	// Models often tuck the optional attributes inside properties.
	if m.Hardness == nil {
		if v, found := props["hardness"]; found {
			m.Hardness = intValue(v)
		}
	}
	if m.GrainPattern == "" {
		m.GrainPattern = props["grainPattern"]
	}
	if m.TypicalUses == "" {
		m.TypicalUses = props["typicalUses"]
	}

	if err := m.Validate(); err != nil {
		return model.Match{}, false
	}
	return m, true
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

// normalizeSpeciesID lowercases and hyphenates an identifier.
func normalizeSpeciesID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.Join(strings.FieldsFunc(id, func(r rune) bool {
		return r == ' ' || r == '_' || r == '\t'
	}), "-")
}

// textValue accepts a string or a list of strings.
func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		return strings.Join(stringList(t), ", ")
	default:
		return ""
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, isString := item.(string); isString && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// intValue accepts a JSON number or a string with a leading integer ("1,360 lbf").
func intValue(v any) *int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		n := int(math.Round(t))
		return &n
	case string:
		digits := strings.Builder{}
		for _, r := range strings.TrimSpace(t) {
			if r == ',' {
				continue
			}
			if r < '0' || r > '9' {
				break
			}
			digits.WriteRune(r)
		}
		n, err := strconv.Atoi(digits.String())
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// properties flattens an arbitrary object into string values, omitting nulls.
func properties(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		switch t := val.(type) {
		case nil:
			continue
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			encoded, err := json.Marshal(t)
			if err != nil {
				continue
			}
			out[k] = string(encoded)
		}
	}
	return out
}
