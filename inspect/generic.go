package inspect

import "strings"

// MIME labels the strategies understand.
const (
	MIMEPlain    = "text/plain"
	MIMEMarkdown = "text/markdown"
	MIMEHTML     = "text/html"
)

// Generic converts an inspect MIME bundle without assuming any transcript
// structure: it picks the best available representation, in plain,
// markdown, markup order, marks it for raw rendering, and supplies an
// escape-stripped Clean variant for frontends that cannot colorize. An
// empty record comes back when no representation carries non-blank
// content.
func Generic(data map[string]string) Sections {
	if plain := data[MIMEPlain]; strings.TrimSpace(plain) != "" {
		return Sections{
			StringForm: plain,
			Raw:        true,
			MIME:       MIMEPlain,
			Clean:      StripANSI(plain),
		}
	}

	if md := data[MIMEMarkdown]; strings.TrimSpace(md) != "" {
		return Sections{
			StringForm: md,
			Raw:        true,
			MIME:       MIMEMarkdown,
			Clean:      StripANSI(md),
		}
	}

	if markup := data[MIMEHTML]; strings.TrimSpace(markup) != "" {
		stripped := stripHTML(markup)
		return Sections{
			StringForm: stripped,
			Raw:        true,
			MIME:       MIMEHTML,
			Clean:      StripANSI(stripped),
		}
	}

	return Sections{}
}
