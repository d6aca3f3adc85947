// internal/models/command.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ParamValue is a command parameter: either a scalar string or a list of
// strings. The zero value is an empty scalar.
type ParamValue struct {
	values []string
	list   bool
}

// Scalar builds a single-valued parameter.
func Scalar(v string) ParamValue {
	return ParamValue{values: []string{v}}
}

// List builds a list-valued parameter. List() is an empty list.
func List(vs ...string) ParamValue {
	out := make([]string, len(vs))
	copy(out, vs)
	return ParamValue{values: out, list: true}
}

func (p ParamValue) IsList() bool { return p.list }

// Values returns the list items, or the scalar as a one-element slice.
func (p ParamValue) Values() []string {
	out := make([]string, len(p.values))
	copy(out, p.values)
	return out
}

// String returns the scalar, or the first list item.
func (p ParamValue) String() string {
	if len(p.values) == 0 {
		return ""
	}
	return p.values[0]
}

// IsEmpty reports a blank scalar or a list without non-blank items.
func (p ParamValue) IsEmpty() bool {
	for _, v := range p.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (p ParamValue) MarshalJSON() ([]byte, error) {
	if p.list {
		return json.Marshal(p.Values())
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts strings, arrays of scalars, numbers and booleans.
// Anything else is kept as its JSON text.
func (p *ParamValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Scalar("")
		return nil
	}

	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			items = append(items, scalarText(r))
		}
		*p = List(items...)
	default:
		*p = Scalar(scalarText(data))
	}
	return nil
}

func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return string(trimmed)
}

// Parameters holds command parameters keyed by name.
type Parameters map[string]ParamValue

// Get returns the scalar value of key, or "" when absent.
func (p Parameters) Get(key string) string {
	if v, ok := p[key]; ok {
		return strings.TrimSpace(v.String())
	}
	return ""
}

// Keys returns parameter names in sorted order.
func (p Parameters) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON additionally expands a "filters" array of {Name, Values}
// objects into one parameter per filter name.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Parameters, len(raw))
	for key, value := range raw {
		if key == "filters" {
			if filters, ok := decodeFilters(value); ok {
				for _, f := range filters {
					out[f.Name] = List(f.Values...)
				}
				continue
			}
		}
		var pv ParamValue
		if err := pv.UnmarshalJSON(value); err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
		out[key] = pv
	}
	*p = out
	return nil
}

// Filter is a provider-side name/values filter.
type Filter struct {
	Name   string   `json:"Name"`
	Values []string `json:"Values"`
}

func decodeFilters(raw json.RawMessage) ([]Filter, bool) {
	var filters []Filter
	if err := json.Unmarshal(raw, &filters); err != nil {
		return nil, false
	}
	for _, f := range filters {
		if f.Name == "" {
			return nil, false
		}
	}
	return filters, true
}

// Command is the provider-neutral intent extracted from a natural-language
// query.
type Command struct {
	Platforms  []string   `json:"platforms"`
	Resources  []string   `json:"resources"`
	Action     string     `json:"action"`
	Parameters Parameters `json:"parameters"`
}

// NewCommand returns a command with every collection allocated.
func NewCommand() Command {
	return Command{
		Platforms:  []string{},
		Resources:  []string{},
		Parameters: Parameters{},
	}
}

// UnmarshalJSON is lenient: a string where a list is expected becomes a
// one-element list, and resources are lower-cased.
func (c *Command) UnmarshalJSON(data []byte) error {
	var raw struct {
		Platforms  ParamValue `json:"platforms"`
		Resources  ParamValue `json:"resources"`
		Action     ParamValue `json:"action"`
		Parameters Parameters `json:"parameters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	cmd := NewCommand()
	cmd.Platforms = nonBlank(raw.Platforms.Values(), false)
	cmd.Resources = nonBlank(raw.Resources.Values(), true)
	cmd.Action = strings.TrimSpace(raw.Action.String())
	if raw.Parameters != nil {
		cmd.Parameters = raw.Parameters
	}
	*c = cmd
	return nil
}

func nonBlank(vs []string, lower bool) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if lower {
			v = strings.ToLower(v)
		}
		out = append(out, v)
	}
	return out
}

// IsEmpty reports a command with nothing to dispatch.
func (c Command) IsEmpty() bool {
	return len(c.Platforms) == 0 && len(c.Resources) == 0 && c.Action == "" && len(c.Parameters) == 0
}

// HasPlatform matches case-insensitively.
func (c Command) HasPlatform(name string) bool {
	for _, p := range c.Platforms {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
