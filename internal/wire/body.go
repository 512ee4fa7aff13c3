package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Body is an explicit request/response payload variant. It replaces the
// source runtime's habit of inferring content-type from the dynamic type of
// a return value: every producer in this codebase states up front which kind
// of body it is handing over, and WriteTo picks the content-type
// deterministically from that statement instead of reflecting on the value.
type Body struct {
	kind   bodyKind
	json   any
	text   string
	binary []byte
}

type bodyKind int

const (
	kindEmpty bodyKind = iota
	kindJSON
	kindText
	kindBinary
)

// JSON wraps an object/array/number/boolean/null value for JSON encoding.
func JSON(v any) Body { return Body{kind: kindJSON, json: v} }

// Text wraps a non-empty plain-text string.
func Text(s string) Body { return Body{kind: kindText, text: s} }

// Binary wraps an application/octet-stream payload.
func Binary(b []byte) Body { return Body{kind: kindBinary, binary: b} }

// Empty represents a body-less response.
func Empty() Body { return Body{kind: kindEmpty} }

// IsEmpty reports whether the body carries no payload.
func (b Body) IsEmpty() bool { return b.kind == kindEmpty }

// WriteTo writes the body to w with the appropriate Content-Type header and
// the given status code.
func (b Body) WriteTo(w http.ResponseWriter, status int) error {
	switch b.kind {
	case kindEmpty:
		w.WriteHeader(status)
		return nil
	case kindText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, err := io.WriteString(w, b.text)
		return err
	case kindBinary:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(status)
		_, err := w.Write(b.binary)
		return err
	case kindJSON:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		return json.NewEncoder(w).Encode(b.json)
	default:
		return fmt.Errorf("wire: unknown body kind %d", b.kind)
	}
}

// DecodeJSON reads a request or response body as JSON into v.
func DecodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("wire: decoding json body: %w", err)
	}
	return nil
}

// FromResult converts an application handler's return value into a Body the
// same way the source serializes handler results: non-empty strings pass
// through as text, []byte becomes binary, nil becomes empty, everything else
// (including the empty string) is JSON.
func FromResult(v any) Body {
	switch val := v.(type) {
	case nil:
		return Empty()
	case string:
		if val == "" {
			return JSON(val)
		}
		return Text(val)
	case []byte:
		return Binary(val)
	default:
		return JSON(val)
	}
}
