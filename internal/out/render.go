package out

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

const (
	ModeHuman = "human"
	ModeJSON  = "json"
)

const indentUnit = "    "

// Render writes result to w in the given output mode.
func Render(w io.Writer, result Result, mode string) error {
	if mode == ModeJSON {
		return renderJSON(w, result)
	}
	return renderHuman(w, result)
}

// RenderError writes a failed invocation to w. Nothing from the failed command
// is printed besides the error itself.
func RenderError(w io.Writer, err error, mode string) error {
	code := clierr.CodeInternal
	if cliErr, ok := clierr.As(err); ok {
		code = cliErr.Code
	}
	if mode == ModeJSON {
		body := map[string]any{
			"error": map[string]any{
				"code":    int(code),
				"type":    code.Kind(),
				"message": err.Error(),
			},
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(body)
	}
	_, werr := fmt.Fprintf(w, "Error: %s\n", err.Error())
	return werr
}

func renderHuman(w io.Writer, result Result) error {
	switch r := result.(type) {
	case Message:
		var buf bytes.Buffer
		writeMessage(&buf, r, 0)
		_, err := w.Write(buf.Bytes())
		return err
	case Sequence:
		for _, item := range r {
			if _, err := fmt.Fprintln(w, toLine(item)); err != nil {
				return err
			}
		}
		return nil
	case Mapping:
		for _, line := range flattenMapping(r) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case Scalar:
		_, err := fmt.Fprintln(w, textValue(r.Value))
		return err
	default:
		return clierr.New(clierr.CodeInternal, fmt.Sprintf("unrenderable result %T", result))
	}
}

func writeMessage(buf *bytes.Buffer, m Message, depth int) {
	if depth == 0 {
		buf.WriteString(m.Name)
		buf.WriteString("\n")
	}
	prefix := strings.Repeat(indentUnit, depth+1)
	for _, f := range m.Fields {
		if nested, ok := f.Value.(Message); ok {
			fmt.Fprintf(buf, "%s%s: %s\n", prefix, f.Name, nested.Name)
			writeMessage(buf, nested, depth+1)
			continue
		}
		fmt.Fprintf(buf, "%s%s: %s\n", prefix, f.Name, textValue(f.Value))
	}
}

func flattenMapping(m Mapping) []string {
	lines := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		switch nested := m[k].(type) {
		case Mapping:
			for _, sub := range sortedKeys(nested) {
				lines = append(lines, fmt.Sprintf("%s.%s: %s", k, sub, textValue(nested[sub])))
			}
		case map[string]any:
			for _, sub := range sortedKeys(nested) {
				lines = append(lines, fmt.Sprintf("%s.%s: %s", k, sub, textValue(nested[sub])))
			}
		default:
			lines = append(lines, fmt.Sprintf("%s: %s", k, textValue(m[k])))
		}
	}
	return lines
}

func toLine(v any) string {
	switch t := v.(type) {
	case Mapping:
		return toLine(map[string]any(t))
	case map[string]any:
		parts := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			parts = append(parts, fmt.Sprintf("%s=%s", k, textValue(t[k])))
		}
		return strings.Join(parts, " ")
	default:
		return textValue(v)
	}
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case []byte:
		return hex.EncodeToString(t)
	case *big.Int:
		if t == nil {
			return "null"
		}
		return t.String()
	case Message:
		parts := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			parts = append(parts, fmt.Sprintf("%s=%s", f.Name, textValue(f.Value)))
		}
		return fmt.Sprintf("%s(%s)", t.Name, strings.Join(parts, " "))
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = textValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		return "[" + strings.Join(t, ", ") + "]"
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func renderJSON(w io.Writer, result Result) error {
	var payload any
	switch r := result.(type) {
	case Message:
		payload = r
	case Sequence:
		items := make([]any, len(r))
		for i, item := range r {
			items[i] = jsonValue(item)
		}
		payload = items
	case Mapping:
		payload = jsonValue(r)
	case Scalar:
		payload = jsonValue(r.Value)
	default:
		return clierr.New(clierr.CodeInternal, fmt.Sprintf("unrenderable result %T", result))
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "encode json output", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf, "", "  "); err != nil {
		return clierr.Wrap(clierr.CodeInternal, "indent json output", err)
	}
	pretty.WriteString("\n")
	_, err = w.Write(pretty.Bytes())
	return err
}

// MarshalJSON keeps the declared field order, which encoding/json does not do
// for maps.
func (m Message) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, f := range m.Fields {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(jsonValue(f.Value))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":")
		buf.Write(val)
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return hex.EncodeToString(t)
	case Mapping:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = jsonValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = jsonValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = jsonValue(item)
		}
		return out
	default:
		return v
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
