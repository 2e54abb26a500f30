// file: internal/ai/flex.go
// version: 1.0.0
// guid: ae5ba154-00f5-4200-8625-3676f71ef79b

package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Model output drifts between JSON types ("95" vs 95, "true" vs true).
// These types accept either form.

// FlexString decodes a JSON string, number or null into a string
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// FlexInt decodes a JSON number or numeric string, rounding fractions and
// ignoring a trailing percent sign
type FlexInt struct {
	Value int
	Set   bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexInt{}
		return nil
	}
	raw := string(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %s", data)
	}
	*f = FlexInt{Value: int(math.Round(v)), Set: true}
	return nil
}

// FlexBool decodes a JSON boolean or the strings "true"/"false"/"yes"/"no"
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a boolean, got %s", data)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		*f = true
	case "false", "no", "0", "":
		*f = false
	default:
		return fmt.Errorf("expected a boolean, got %q", s)
	}
	return nil
}
