// internal/interpreter/text.go
package interpreter

import (
	"strconv"
	"strings"

	"cloudwise/internal/models"
	"cloudwise/internal/sections"
)

const (
	sectionPlatforms  = "platforms"
	sectionResources  = "resources"
	sectionAction     = "action"
	sectionParameters = "parameters"
)

var textParser = sections.New(
	sections.Heading{Name: sectionPlatforms, Aliases: []string{"platform", "cloud platforms"}},
	sections.Heading{Name: sectionResources, Aliases: []string{"resource", "resource types"}},
	sections.Heading{Name: sectionAction, Aliases: []string{"operation"}},
	sections.Heading{Name: sectionParameters, Aliases: []string{"parameter", "params", "filters"}},
)

// FormatText renders cmd in the section layout ParseText reads.
func FormatText(cmd models.Command) string {
	var b strings.Builder

	b.WriteString("Platforms:\n")
	for _, p := range cmd.Platforms {
		b.WriteString("- " + p + "\n")
	}

	b.WriteString("Resources:\n")
	for _, r := range cmd.Resources {
		b.WriteString("- " + r + "\n")
	}

	b.WriteString("Action:")
	if cmd.Action != "" {
		b.WriteString(" " + cmd.Action)
	}
	b.WriteString("\n")

	b.WriteString("Parameters:\n")
	for _, key := range cmd.Parameters.Keys() {
		b.WriteString("- " + formatKey(key) + ": " + formatValue(cmd.Parameters[key]) + "\n")
	}

	return b.String()
}

// ParseText reads the section layout. Unknown lines are ignored.
func ParseText(text string) models.Command {
	cmd, _ := ParseTextDocument(text)
	return cmd
}

// ParseTextDocument also returns the scanned document so callers can detect
// degraded output.
func ParseTextDocument(text string) (models.Command, *sections.Document) {
	doc := textParser.Parse(text)
	cmd := models.NewCommand()

	cmd.Platforms = tokens(doc.Lines(sectionPlatforms), false)
	cmd.Resources = tokens(doc.Lines(sectionResources), true)

	for _, l := range doc.Lines(sectionAction) {
		if l.Text != "" {
			cmd.Action = l.Text
		}
	}

	for _, l := range doc.Lines(sectionParameters) {
		key, value, ok := parseParam(l.Text)
		if !ok {
			continue
		}
		cmd.Parameters[key] = value
	}

	return cmd, doc
}

// tokens takes bullet lines whole and comma-splits plain lines.
func tokens(lines []sections.Line, lower bool) []string {
	out := []string{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if lower {
			s = strings.ToLower(s)
		}
		out = append(out, s)
	}

	for _, l := range lines {
		if l.Bullet {
			add(l.Text)
			continue
		}
		for _, part := range strings.Split(l.Text, ",") {
			add(part)
		}
	}
	return out
}

func formatKey(key string) string {
	if key == "" || strings.Contains(key, ":") || strings.ContainsAny(key[:1], `"' [`) || key != strings.TrimSpace(key) {
		return strconv.Quote(key)
	}
	return key
}

func formatValue(v models.ParamValue) string {
	if !v.IsList() {
		return strconv.Quote(v.String())
	}
	items := v.Values()
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// parseParam splits on the first ": " (or ':' when there is no space after
// any colon). A quoted key may itself contain colons.
func parseParam(line string) (string, models.ParamValue, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", models.ParamValue{}, false
	}

	var key, rest string
	if strings.HasPrefix(line, `"`) {
		prefix, err := strconv.QuotedPrefix(line)
		if err != nil {
			return "", models.ParamValue{}, false
		}
		key, _ = strconv.Unquote(prefix)
		rest = strings.TrimSpace(line[len(prefix):])
		if !strings.HasPrefix(rest, ":") {
			return "", models.ParamValue{}, false
		}
		rest = rest[1:]
	} else {
		var ok bool
		key, rest, ok = strings.Cut(line, ": ")
		if !ok {
			key, rest, ok = strings.Cut(line, ":")
			if !ok {
				return "", models.ParamValue{}, false
			}
		}
		key = strings.TrimSpace(key)
	}

	if key == "" {
		return "", models.ParamValue{}, false
	}
	return key, parseValue(strings.TrimSpace(rest)), true
}

func parseValue(s string) models.ParamValue {
	if strings.HasPrefix(s, `"`) {
		if v, err := strconv.Unquote(s); err == nil {
			return models.Scalar(v)
		}
	}
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		return models.List(splitList(s[1 : len(s)-1])...)
	}
	return models.Scalar(unquoteLoose(s))
}

// splitList splits on commas outside double quotes.
func splitList(inner string) []string {
	items := []string{}
	s := strings.TrimSpace(inner)
	for s != "" {
		if s[0] == '"' {
			if prefix, err := strconv.QuotedPrefix(s); err == nil {
				v, _ := strconv.Unquote(prefix)
				items = append(items, v)
				s = strings.TrimSpace(s[len(prefix):])
				s = strings.TrimSpace(strings.TrimPrefix(s, ","))
				continue
			}
		}
		token, rest, _ := strings.Cut(s, ",")
		if token = unquoteLoose(strings.TrimSpace(token)); token != "" {
			items = append(items, token)
		}
		s = strings.TrimSpace(rest)
	}
	return items
}

func unquoteLoose(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
