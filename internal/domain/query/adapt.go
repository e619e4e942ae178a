package query

import "sort"

// Call is the adapted argument set forwarded to the retrieval collaborator.
type Call map[string]any

// Adapt validates req and keeps only the supplied fields whose names are in accepted.
// Unknown fields are dropped silently; accepted-but-unsupplied fields get no default.
func Adapt(req Request, accepted ParameterSet) (Call, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	call := make(Call)
	for k, v := range req.Fields() {
		if accepted.Has(k) {
			call[k] = v
		}
	}
	return call, nil
}

// Dropped returns the supplied field names that Adapt would not forward, sorted.
func Dropped(req Request, accepted ParameterSet) []string {
	var out []string
	for k := range req.Fields() {
		if !accepted.Has(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Preview is a dry-run view of an adaptation.
type Preview struct {
	Supported []string       `json:"supported_params"`
	Received  map[string]any `json:"received_payload"`
	WillPass  Call           `json:"will_pass_kwargs"`
}

// NewPreview computes the adaptation of req without forwarding it.
func NewPreview(req Request, accepted ParameterSet) (Preview, error) {
	call, err := Adapt(req, accepted)
	if err != nil {
		return Preview{}, err
	}
	return Preview{
		Supported: accepted.Names(),
		Received:  req.Fields(),
		WillPass:  call,
	}, nil
}
