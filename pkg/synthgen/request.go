package synthgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reserved request keys. Everything else is passed to the generator as Params.
const (
	KeyBlurID    = "blurid"
	KeyProcessID = "processId"
	KeyCount     = "count"
	KeyReuse     = "reuse"
)

// Request is the inbound document submitted by the host pipeline.
type Request struct {
	BlurID    string `json:"blurid"`
	ProcessID string `json:"processId,omitempty"`
	Count     int    `json:"count"`
	Reuse     bool   `json:"reuse,omitempty"`
	Params    Params `json:"-"`
}

// ParseRequest decodes a JSON request document.
func ParseRequest(data []byte) (Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return RequestFromMap(doc)
}

// RequestFromMap splits a decoded request document into its reserved fields
// and generator parameters.
func RequestFromMap(doc map[string]any) (Request, error) {
	params := make(Params, len(doc))
	for k, v := range doc {
		params[k] = v
	}

	req := Request{Count: 1}
	req.BlurID, _ = params.String(KeyBlurID)
	req.ProcessID, _ = params.String(KeyProcessID)

	count, ok, err := params.Int(KeyCount)
	if err != nil {
		return Request{}, err
	}
	if ok {
		if count < 1 || count > math.MaxInt32 {
			return Request{}, Invalid(KeyCount, "must be between 1 and %d, got %d", math.MaxInt32, count)
		}
		req.Count = int(count)
	}

	reuse, _, err := params.Bool(KeyReuse)
	if err != nil {
		return Request{}, err
	}
	req.Reuse = reuse

	for _, k := range []string{KeyBlurID, KeyProcessID, KeyCount, KeyReuse} {
		delete(params, k)
	}
	req.Params = params
	return req, nil
}

// Validate checks the fields every generator relies on.
func (r Request) Validate() error {
	if strings.TrimSpace(r.BlurID) == "" {
		return Missing(KeyBlurID)
	}
	if r.Count < 1 {
		return Invalid(KeyCount, "must be at least 1, got %d", r.Count)
	}
	return nil
}

// Params holds generator-specific request parameters. Values may arrive as
// strings, JSON numbers or native Go numbers.
type Params map[string]any

// String returns the trimmed string form of a parameter.
func (p Params) String(name string) (string, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// RequiredString returns a non-blank string parameter.
func (p Params) RequiredString(name string) (string, error) {
	s, ok := p.String(name)
	if !ok {
		return "", Missing(name)
	}
	return s, nil
}

// StringOr returns the parameter or def when absent.
func (p Params) StringOr(name, def string) string {
	if s, ok := p.String(name); ok {
		return s
	}
	return def
}

// Int returns an integer parameter. ok is false when the parameter is absent.
func (p Params) Int(name string) (int64, bool, error) {
	v, present := p[name]
	if !present || v == nil {
		return 0, false, nil
	}
	switch t := v.(type) {
	case int:
		return int64(t), true, nil
	case int32:
		return int64(t), true, nil
	case int64:
		return t, true, nil
	case float64:
		if t != math.Trunc(t) {
			return 0, false, Invalid(name, "must be an integer, got %v", t)
		}
		return int64(t), true, nil
	}
	s, ok := p.String(name)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, Invalid(name, "must be an integer, got %q", s)
	}
	return n, true, nil
}

// RequiredInt returns an integer parameter that must be present.
func (p Params) RequiredInt(name string) (int64, error) {
	n, ok, err := p.Int(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, Missing(name)
	}
	return n, nil
}

// IntOr returns the integer parameter or def when absent.
func (p Params) IntOr(name string, def int64) (int64, error) {
	n, ok, err := p.Int(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	return n, nil
}

// Bool returns a boolean parameter; strings "true"/"false" are accepted.
func (p Params) Bool(name string) (bool, bool, error) {
	v, present := p[name]
	if !present || v == nil {
		return false, false, nil
	}
	if b, ok := v.(bool); ok {
		return b, true, nil
	}
	s, ok := p.String(name)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false, Invalid(name, "must be a boolean, got %q", s)
	}
	return b, true, nil
}
