package render

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text accepts a JSON string, number or bool and keeps its textual form.
// null and absent decode to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(string(b))
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Int parses the text as an integer; ok is false when it is not one.
func (t Text) Int() (int, bool) {
	s := strings.TrimSpace(string(t))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// List accepts either a JSON array of scalars or a single scalar.
type List []string

func (l *List) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var items []Text
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make(List, 0, len(items))
		for _, it := range items {
			out = append(out, string(it))
		}
		*l = out
		return nil
	}
	var single Text
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	if single == "" {
		*l = nil
		return nil
	}
	*l = List{string(single)}
	return nil
}
