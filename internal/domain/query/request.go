package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/booksrag/internal/domain"
)

// Wire names of the known request fields.
const (
	FieldQuestion    = "question"
	FieldBookID      = "book_id"
	FieldK           = "k"
	FieldTargetChars = "target_chars"
	FieldDryRun      = "dry_run"
)

// Request is an inbound query payload: a fixed set of known optional fields
// plus an overflow map for anything else the client sent.
type Request struct {
	Question    string
	BookID      *string
	K           *int
	TargetChars *int
	DryRun      *bool
	Extra       map[string]any
}

// UnmarshalJSON decodes known keys into typed fields and every other non-null key into Extra.
// A JSON null on any key means the field was not supplied.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode query request: %w", err)
	}

	var out Request
	for key, val := range raw {
		if isNull(val) {
			continue
		}
		var err error
		switch key {
		case FieldQuestion:
			err = json.Unmarshal(val, &out.Question)
		case FieldBookID:
			out.BookID = new(string)
			err = json.Unmarshal(val, out.BookID)
		case FieldK:
			out.K, err = decodeInt(val)
		case FieldTargetChars:
			out.TargetChars, err = decodeInt(val)
		case FieldDryRun:
			out.DryRun = new(bool)
			err = json.Unmarshal(val, out.DryRun)
		default:
			var v any
			err = json.Unmarshal(val, &v)
			if err == nil {
				if out.Extra == nil {
					out.Extra = make(map[string]any)
				}
				out.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}

	*r = out
	return nil
}

// Validate checks the request before any parameter filtering happens.
// A missing question is the only rejection; values are the collaborator's to judge.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return domain.ErrMissingQuestion
	}
	return nil
}

// Fields returns every supplied (non-null) field keyed by wire name.
func (r *Request) Fields() map[string]any {
	out := make(map[string]any, 5+len(r.Extra))
	for k, v := range r.Extra {
		if v != nil {
			out[k] = v
		}
	}
	if r.Question != "" {
		out[FieldQuestion] = r.Question
	}
	if r.BookID != nil {
		out[FieldBookID] = *r.BookID
	}
	if r.K != nil {
		out[FieldK] = *r.K
	}
	if r.TargetChars != nil {
		out[FieldTargetChars] = *r.TargetChars
	}
	if r.DryRun != nil {
		out[FieldDryRun] = *r.DryRun
	}
	return out
}

// decodeInt accepts any JSON number with an integral value, so 5 and 5.0 both decode to 5.
func decodeInt(raw json.RawMessage) (*int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	if i, err := n.Int64(); err == nil {
		v := int(i)
		return &v, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("%s is not an integer", n)
	}
	v := int(f)
	return &v, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
