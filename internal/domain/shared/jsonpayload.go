package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoJSONObject is returned when text holds no '{' ... '}' pair.
var ErrNoJSONObject = errors.New("no JSON object found in text")

// ExtractJSONObject returns the slice of text between the first '{' and the
// last '}', inclusive. Model output often wraps the object in prose.
func ExtractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return text[start : end+1], nil
}

// DecodeJSONObject extracts the embedded object from text and unmarshals it into v.
func DecodeJSONObject(text string, v interface{}) error {
	payload, err := ExtractJSONObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("invalid JSON object: %w", err)
	}
	return nil
}

var leadingNumber = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// Number is a quantity reported by a language model. It decodes from a JSON
// number or from a string that starts with one, such as "20 min".
type Number float64

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("number: %w", err)
	}

	match := leadingNumber.FindString(s)
	if match == "" {
		return fmt.Errorf("number: %q has no numeric value", s)
	}

	f, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	if err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Number(f)
	return nil
}

// Float64 returns n as a float64
func (n Number) Float64() float64 {
	return float64(n)
}

// String formats n without trailing zeros
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}
