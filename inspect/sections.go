// Package inspect normalizes kernel inspect replies into a uniform
// Sections record the frontend can render without kernel-specific
// knowledge. Two strategies exist: a styled-transcript parser for kernels
// that emit ANSI-labelled key/value sections, and a generic fallback that
// picks the best available MIME representation. A registry maps kernel
// identities to strategies, with the generic strategy as the default.
package inspect

// Sections is the normalized result of inspecting a symbol. All fields are
// optional; presentation hints steer the frontend's rendering:
//   - Order preserves the label discovery order for kernels that provide
//     ordered sections.
//   - Raw marks content that should be rendered verbatim (it may contain
//     escape sequences or markup).
//   - MIME records which representation the value came from.
//   - Clean carries an escape-stripped variant of raw content for frontends
//     that cannot colorize.
type Sections struct {
	StringForm     string `json:"string_form,omitempty"`
	Docstring      string `json:"docstring,omitempty"`
	Definition     string `json:"definition,omitempty"`
	InitDefinition string `json:"init_definition,omitempty"`
	CallDef        string `json:"call_def,omitempty"`
	TypeName       string `json:"type_name,omitempty"`
	Namespace      string `json:"namespace,omitempty"`
	Length         string `json:"length,omitempty"`
	File           string `json:"file,omitempty"`
	Subclasses     string `json:"subclasses,omitempty"`
	ClassDocstring string `json:"class_docstring,omitempty"`
	InitDocstring  string `json:"init_docstring,omitempty"`
	CallDocstring  string `json:"call_docstring,omitempty"`

	Order []string `json:"_order,omitempty"`
	Raw   bool     `json:"_raw,omitempty"`
	MIME  string   `json:"_mime,omitempty"`
	Clean string   `json:"_clean,omitempty"`
}

// IsEmpty reports whether no section carries content.
func (s Sections) IsEmpty() bool {
	return s.StringForm == "" &&
		s.Docstring == "" &&
		s.Definition == "" &&
		s.InitDefinition == "" &&
		s.CallDef == "" &&
		s.TypeName == "" &&
		s.Namespace == "" &&
		s.Length == "" &&
		s.File == "" &&
		s.Subclasses == "" &&
		s.ClassDocstring == "" &&
		s.InitDocstring == "" &&
		s.CallDocstring == ""
}

// setField assigns a value to the named section field. Unknown names are
// ignored by callers before reaching here.
func (s *Sections) setField(name, value string) {
	switch name {
	case "string_form":
		s.StringForm = value
	case "docstring":
		s.Docstring = value
	case "definition":
		s.Definition = value
	case "init_definition":
		s.InitDefinition = value
	case "call_def":
		s.CallDef = value
	case "type_name":
		s.TypeName = value
	case "namespace":
		s.Namespace = value
	case "length":
		s.Length = value
	case "file":
		s.File = value
	case "subclasses":
		s.Subclasses = value
	case "class_docstring":
		s.ClassDocstring = value
	case "init_docstring":
		s.InitDocstring = value
	case "call_docstring":
		s.CallDocstring = value
	}
}
