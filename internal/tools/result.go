package tools

import (
	"bytes"
	"encoding/json"
	"strings"
)

// result is the JSON document a tool returns. Most tools report
// {"status":"success"|"error",...}; birdeye and vybe use {"success":bool}.
type result map[string]any

func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// success encodes fields with status "success".
func success(fields result) (string, error) {
	out := result{"status": "success"}
	for k, v := range fields {
		out[k] = v
	}
	return encode(out)
}

// failure encodes {"status":"error","message":msg} plus any extra fields.
func failure(msg string, extra ...result) (string, error) {
	out := result{"status": "error", "message": msg}
	for _, e := range extra {
		for k, v := range e {
			out[k] = v
		}
	}
	return encode(out)
}

func failureErr(err error, extra ...result) (string, error) {
	return failure(err.Error(), extra...)
}
