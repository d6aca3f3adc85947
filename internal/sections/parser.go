// Package sections scans free-form model output laid out as headed sections
// of bullet or plain lines.
//
// A line is a header when, after markdown and enumerators are stripped, it
// equals one of a section's aliases or starts with "<alias>:". The raw text
// after the colon, markup included, is the section's first content line. Lines that merely look like
// headers (ending in ':', a markdown heading, or fully bold) also switch
// section when they contain an alias. Bullet lines are never headers.
package sections

import (
	"regexp"
	"sort"
	"strings"
)

// Heading names a section and the header spellings that open it.
type Heading struct {
	Name    string
	Aliases []string
}

// Line is one content line with its bullet marker removed.
type Line struct {
	Text   string
	Bullet bool
}

// Document is the result of a parse.
type Document struct {
	sections map[string][]Line
	order    []string
	// Headers counts recognized section headers.
	Headers int
	// Ignored counts non-blank lines that appeared before any header.
	Ignored int
}

// Lines returns the content lines of a section in input order.
func (d *Document) Lines(name string) []Line {
	return d.sections[name]
}

// Items returns the non-empty texts of a section.
func (d *Document) Items(name string) []string {
	out := []string{}
	for _, l := range d.sections[name] {
		if l.Text != "" {
			out = append(out, l.Text)
		}
	}
	return out
}

// Has reports whether the section header appeared at all.
func (d *Document) Has(name string) bool {
	_, ok := d.sections[name]
	return ok
}

// Found lists the sections seen, in first-seen order.
func (d *Document) Found() []string {
	return append([]string(nil), d.order...)
}

// Degraded reports output with no recognizable structure.
func (d *Document) Degraded() bool {
	return d.Headers == 0
}

type alias struct {
	section string
	text    string
}

// Parser is immutable and safe for concurrent use.
type Parser struct {
	aliases []alias
}

// New builds a parser. Aliases are matched case-insensitively, longest first.
func New(headings ...Heading) *Parser {
	p := &Parser{}
	for _, s := range headings {
		names := append([]string{s.Name}, s.Aliases...)
		for _, a := range names {
			if n := normalize(a); n != "" {
				p.aliases = append(p.aliases, alias{section: s.Name, text: n})
			}
		}
	}
	sort.SliceStable(p.aliases, func(i, j int) bool {
		return len(p.aliases[i].text) > len(p.aliases[j].text)
	})
	return p
}

// Parse splits text into sections.
func (p *Parser) Parse(text string) *Document {
	doc := &Document{sections: map[string][]Line{}}
	current := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" {
			continue
		}

		if body, ok := cutBullet(line); ok {
			if current == "" {
				doc.Ignored++
				continue
			}
			doc.sections[current] = append(doc.sections[current], Line{Text: body, Bullet: true})
			continue
		}

		if name, inline, ok := p.header(line); ok {
			current = name
			doc.Headers++
			if _, seen := doc.sections[name]; !seen {
				doc.sections[name] = []Line{}
				doc.order = append(doc.order, name)
			}
			if inline != "" {
				doc.sections[name] = append(doc.sections[name], Line{Text: inline})
			}
			continue
		}

		if current == "" {
			doc.Ignored++
			continue
		}

		body, enumerated := cutEnumerator(line)
		doc.sections[current] = append(doc.sections[current], Line{Text: body, Bullet: enumerated})
	}

	return doc
}

func (p *Parser) header(line string) (string, string, bool) {
	norm := normalize(line)
	if norm == "" {
		return "", "", false
	}

	for _, a := range p.aliases {
		if norm == a.text || strings.HasPrefix(norm, a.text+":") {
			return a.section, inlineValue(line), true
		}
	}

	if !looksLikeHeader(line) {
		return "", "", false
	}
	for _, a := range p.aliases {
		if containsWord(norm, a.text) {
			return a.section, "", true
		}
	}
	return "", "", false
}

// inlineValue is the raw text after the header's colon. Only a bold or
// underline delimiter closing the header label is dropped.
func inlineValue(line string) string {
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	value = strings.TrimSpace(value)
	for _, delim := range []string{"**", "__"} {
		if strings.Count(label, delim)%2 == 1 && strings.HasPrefix(value, delim) {
			value = strings.TrimSpace(value[len(delim):])
		}
	}
	return value
}

var (
	enumerator = regexp.MustCompile(`^\(?\d{1,2}[.)]\s+`)
	spaces     = regexp.MustCompile(`\s+`)
)

var bulletMarkers = []string{"- ", "• ", "* ", "+ ", "– "}

// cutBullet removes one leading bullet marker. A lone marker is an empty item.
func cutBullet(line string) (string, bool) {
	switch line {
	case "-", "•", "*", "+", "–":
		return "", true
	}
	for _, m := range bulletMarkers {
		if strings.HasPrefix(line, m) {
			return strings.TrimSpace(line[len(m):]), true
		}
	}
	return line, false
}

func cutEnumerator(line string) (string, bool) {
	if loc := enumerator.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:]), true
	}
	return line, false
}

// stripMarkup drops heading marks, a leading enumerator and bold/italic
// delimiters while keeping the original case.
func stripMarkup(line string) string {
	s := strings.TrimLeft(line, "#")
	s = strings.TrimSpace(s)
	s, _ = cutEnumerator(s)
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}

func normalize(s string) string {
	s = strings.ToLower(stripMarkup(s))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Trim(s, "* ")
	s = strings.ReplaceAll(s, " :", ":")
	return spaces.ReplaceAllString(strings.TrimSpace(s), " ")
}

func looksLikeHeader(line string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	trimmed := strings.TrimSuffix(line, ":")
	if strings.HasSuffix(line, ":") {
		return true
	}
	return len(trimmed) > 4 && strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, "**")
}

// containsWord matches alias on word boundaries so "actions" does not open
// an "action" section by accident.
func containsWord(haystack, needle string) bool {
	for start := 0; ; {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(needle)
		beforeOK := i == 0 || !isWordByte(haystack[i-1])
		afterOK := end == len(haystack) || !isWordByte(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
