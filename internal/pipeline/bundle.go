package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	domainClaims "gridtruth/domain/claims"
	"gridtruth/domain/core"
	"gridtruth/domain/energy"
	domainScenario "gridtruth/domain/scenario"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/domain/verdict"
)

// Bundle is one end-to-end input: the interval and bill data for the truth
// layer, the stored analysis and generated pack for the verifier, and the
// decision pack with its coverage for the scenario lab. Every part is
// optional except the identity and the generation time.
type Bundle struct {
	RunID       core.RunID      `json:"runId"`
	RevisionID  core.RevisionID `json:"revisionId"`
	GeneratedAt core.Timestamp  `json:"generatedAt"`

	Series      *energy.IntervalSeries `json:"series,omitempty"`
	Bills       []energy.BillRow       `json:"bills,omitempty"`
	HasBillText bool                   `json:"hasBillText,omitempty"`

	Analysis json.RawMessage `json:"analysis,omitempty"`
	Pack     json.RawMessage `json:"pack,omitempty"`

	DecisionPack          *domainScenario.DecisionPack     `json:"decisionPack,omitempty"`
	Coverage              *domainScenario.CoverageSnapshot `json:"coverage,omitempty"`
	MissingInfo           []domainClaims.MissingInfoItem   `json:"missingInfo,omitempty"`
	RequiredInputsMissing []string                         `json:"requiredInputsMissing,omitempty"`
}

// Report is the composed output of one bundle.
type Report struct {
	RunID       core.RunID                `json:"runId"`
	RevisionID  core.RevisionID           `json:"revisionId"`
	GeneratedAt core.Timestamp            `json:"generatedAt"`
	Truth       *domainTruth.Snapshot     `json:"truth"`
	Verifier    verdict.Result            `json:"verifier"`
	Claims      domainClaims.Policy       `json:"claims"`
	Lab         *domainScenario.LabResult `json:"lab"`
}

// DecodeBundle reads one bundle. Unknown top-level fields are rejected.
func DecodeBundle(r io.Reader) (Bundle, error) {
	var b Bundle
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("%w: bundle: %v", core.ErrInvalidInput, err)
	}
	return b, nil
}

// DecodeBundles reads either a single bundle object or an array of bundles.
func DecodeBundles(data []byte) ([]Bundle, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: bundle list: %v", core.ErrInvalidInput, err)
		}
		out := make([]Bundle, 0, len(raw))
		for i, item := range raw {
			b, err := DecodeBundle(bytes.NewReader(item))
			if err != nil {
				return nil, fmt.Errorf("bundle %d: %w", i, err)
			}
			out = append(out, b)
		}
		return out, nil
	}
	b, err := DecodeBundle(bytes.NewReader(trimmed))
	if err != nil {
		return nil, err
	}
	return []Bundle{b}, nil
}
