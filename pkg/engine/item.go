package engine

import (
	"fmt"
)

// Item is a raw batch entry as decoded from JSON or YAML
type Item map[string]any

// parameter names, with the camelCase spellings also accepted
var (
	paramControlText  = []string{"control_text", "controlText"}
	paramEvidenceURLs = []string{"evidence_urls", "evidenceUrls"}
	paramFrameworks   = []string{"frameworks"}
)

// ParamError reports a batch item parameter with the wrong shape
type ParamError struct {
	Name string
	Err  error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %q: %v", e.Name, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// ParseItem reads the evaluation parameters from a raw item.
// Missing parameters take their defaults: empty text, no evidence, no frameworks.
func ParseItem(it Item) (Input, error) {
	var in Input

	text, err := stringParam(it, paramControlText)
	if err != nil {
		return Input{}, err
	}
	in.ControlText = text

	urls, err := stringListParam(it, paramEvidenceURLs)
	if err != nil {
		return Input{}, err
	}
	in.EvidenceURLs = urls

	fws, err := stringListParam(it, paramFrameworks)
	if err != nil {
		return Input{}, err
	}
	in.Frameworks = make([]Framework, len(fws))
	for i, fw := range fws {
		in.Frameworks[i] = Framework(fw)
	}
	return in, nil
}

// ToItem converts a typed input back into a raw item
func (in Input) ToItem() Item {
	urls := make([]any, len(in.EvidenceURLs))
	for i, u := range in.EvidenceURLs {
		urls[i] = u
	}
	fws := make([]any, len(in.Frameworks))
	for i, fw := range in.Frameworks {
		fws[i] = string(fw)
	}
	return Item{
		paramControlText[0]:  in.ControlText,
		paramEvidenceURLs[0]: urls,
		paramFrameworks[0]:   fws,
	}
}

func lookupParam(it Item, names []string) (any, string, bool) {
	for _, n := range names {
		if v, ok := it[n]; ok && v != nil {
			return v, n, true
		}
	}
	return nil, names[0], false
}

func stringParam(it Item, names []string) (string, error) {
	v, name, ok := lookupParam(it, names)
	if !ok {
		return "", nil
	}
	s, isString := v.(string)
	if !isString {
		return "", &ParamError{Name: name, Err: fmt.Errorf("expected string, got %T", v)}
	}
	return s, nil
}

func stringListParam(it Item, names []string) ([]string, error) {
	v, name, ok := lookupParam(it, names)
	if !ok {
		return []string{}, nil
	}

	switch list := v.(type) {
	case []string:
		return append([]string{}, list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, e := range list {
			s, isString := e.(string)
			if !isString {
				return nil, &ParamError{Name: name, Err: fmt.Errorf("element %d: expected string, got %T", i, e)}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &ParamError{Name: name, Err: fmt.Errorf("expected list of strings, got %T", v)}
	}
}
