package inspect

import "strings"

// labelFields maps transcript labels to section field names. Unknown
// labels are ignored.
var labelFields = map[string]string{
	"Type":            "type_name",
	"String form":     "string_form",
	"Length":          "length",
	"File":            "file",
	"Docstring":       "docstring",
	"Init docstring":  "init_docstring",
	"Class docstring": "class_docstring",
	"Call docstring":  "call_docstring",
	"Signature":       "definition",
	"Init signature":  "init_definition",
	"Call signature":  "call_def",
	"Namespace":       "namespace",
	"Subclasses":      "subclasses",
	"Repr":            "string_form",
}

// HasStyledMarkers reports whether text contains at least one styled
// section marker.
func HasStyledMarkers(text string) bool {
	return text != "" && keyPattern.MatchString(text)
}

// ParseStyled lexes a styled inspect transcript into labeled sections.
// Each marker names a section; the value runs from just past the marker to
// the next marker or end of text, ANSI-stripped and trimmed. Empty values
// and unknown labels are dropped; Order records label discovery order.
// Text without any marker becomes a single string_form value when
// non-empty. Returns false when nothing was extracted.
func ParseStyled(text string) (Sections, bool) {
	if text == "" {
		return Sections{}, false
	}

	matches := keyPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		value := strings.TrimSpace(StripANSI(text))
		if value == "" {
			return Sections{}, false
		}
		return Sections{StringForm: value}, true
	}

	var sections Sections
	var order []string
	for i, m := range matches {
		label := text[m[2]:m[3]]
		field, known := labelFields[label]
		if !known {
			continue
		}

		valueStart := m[1]
		valueEnd := len(text)
		if i+1 < len(matches) {
			valueEnd = matches[i+1][0]
		}

		value := strings.TrimSpace(StripANSI(text[valueStart:valueEnd]))
		if value == "" {
			continue
		}
		sections.setField(field, value)
		order = append(order, field)
	}

	if len(order) == 0 {
		return Sections{}, false
	}
	sections.Order = order
	return sections, true
}

// Styled converts an inspect MIME bundle from a styled-transcript kernel.
// When the plain-text representation carries section markers it is lexed
// into labeled sections; otherwise the best remaining representation is
// chosen, in markdown, plain, markup order. Markup-derived and verbatim
// plain content is flagged for raw rendering.
func Styled(data map[string]string) Sections {
	plain := data[MIMEPlain]
	if HasStyledMarkers(plain) {
		if sections, ok := ParseStyled(plain); ok {
			sections.MIME = MIMEPlain
			return sections
		}
	}

	if md := data[MIMEMarkdown]; strings.TrimSpace(md) != "" {
		return Sections{StringForm: md, MIME: MIMEMarkdown}
	}
	if strings.TrimSpace(plain) != "" {
		return Sections{StringForm: plain, Raw: true, MIME: MIMEPlain}
	}
	if markup := data[MIMEHTML]; strings.TrimSpace(markup) != "" {
		return Sections{StringForm: stripHTML(markup), Raw: true, MIME: MIMEHTML}
	}
	return Sections{}
}
