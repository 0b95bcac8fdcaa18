package dispatch

import (
	"strings"
)

// Input is the flat set of values gathered for one invocation.
type Input struct {
	Values map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
	Flags  map[string]bool   `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// NewInput returns an empty Input ready for use.
func NewInput() Input {
	return Input{Values: map[string]string{}, Flags: map[string]bool{}}
}

// Set stores a text value.
func (in *Input) Set(name, value string) {
	if in.Values == nil {
		in.Values = map[string]string{}
	}
	in.Values[name] = value
}

// SetFlag stores a boolean value.
func (in *Input) SetFlag(name string, value bool) {
	if in.Flags == nil {
		in.Flags = map[string]bool{}
	}
	in.Flags[name] = value
}

// Text returns the trimmed value of name.
func (in Input) Text(name string) string {
	return strings.TrimSpace(in.Values[name])
}

// TextOr returns the trimmed value of name, or def when it is blank.
func (in Input) TextOr(name, def string) string {
	if v := in.Text(name); v != "" {
		return v
	}
	return def
}

// Flag returns the boolean named name, or def when it was never set.
func (in Input) Flag(name string, def bool) bool {
	if v, ok := in.Flags[name]; ok {
		return v
	}
	return def
}

// List splits the value of name into lines.
func (in Input) List(name string) []string {
	return SplitLines(in.Values[name])
}

// SplitLines splits text on newlines, trims each entry and drops blanks.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// withDefaults returns a copy of in with field defaults applied to missing values.
func (in Input) withDefaults(spec Spec) Input {
	out := NewInput()
	for k, v := range in.Values {
		out.Values[k] = v
	}
	for k, v := range in.Flags {
		out.Flags[k] = v
	}
	for _, f := range spec.Fields {
		if f.Default == "" {
			continue
		}
		switch f.Kind {
		case FieldBool:
			if _, ok := out.Flags[f.Name]; !ok {
				out.Flags[f.Name] = f.Default == "true"
			}
		default:
			if strings.TrimSpace(out.Values[f.Name]) == "" {
				out.Values[f.Name] = f.Default
			}
		}
	}
	return out
}
