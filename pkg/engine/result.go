package engine

// Notes is attached to every evaluation result
const Notes = "Realistic scoring based on control quality, evidence, and implementation depth."

// Gap and action texts added when no evidence is attached
const (
	GapNoEvidence     = "No evidence provided"
	ActionAddEvidence = "Attach relevant evidence links"
)

// Input is the parsed per-item request
type Input struct {
	ControlText  string      `json:"control_text" yaml:"control_text"`
	EvidenceURLs []string    `json:"evidence_urls" yaml:"evidence_urls"`
	Frameworks   []Framework `json:"frameworks" yaml:"frameworks"`
}

// Result is the full assessment of one control
type Result struct {
	InputControlText   string      `json:"input_control_text" yaml:"input_control_text"`
	Categories         []Category  `json:"categories" yaml:"categories"`
	Evidence           []string    `json:"evidence" yaml:"evidence"`
	Status             Status      `json:"status" yaml:"status"`
	Score              int         `json:"score" yaml:"score"`
	Confidence         int         `json:"confidence" yaml:"confidence"`
	Evaluation         Evaluation  `json:"evaluation" yaml:"evaluation"`
	Rationale          string      `json:"rationale" yaml:"rationale"`
	MappedRequirements []Clause    `json:"mapped_requirements" yaml:"mapped_requirements"`
	FrameworksSelected []Framework `json:"frameworks_selected" yaml:"frameworks_selected"`
	Gaps               []string    `json:"gaps" yaml:"gaps"`
	Actions            []string    `json:"actions" yaml:"actions"`
	Notes              string      `json:"notes" yaml:"notes"`
}

// Output is one entry of a batch: either a result or the original item
// tagged with the error that prevented its evaluation.
type Output struct {
	PairedItem int     `json:"paired_item" yaml:"paired_item"`
	Result     *Result `json:"result,omitempty" yaml:"result,omitempty"`
	Input      Item    `json:"input,omitempty" yaml:"input,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the output carries an error instead of a result
func (o Output) Failed() bool {
	return o.Result == nil
}
