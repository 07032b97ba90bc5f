package engine

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/decision"
	"github.com/crewvet/trust-cli/internal/model"
	"github.com/crewvet/trust-cli/internal/scorer"
)

// Case is a self-contained candidate fixture: contracts, behavioral data,
// sibling snapshots and overrides.
type Case struct {
	CandidateID string                   `yaml:"candidate_id"`
	AsOf        *time.Time               `yaml:"as_of"`
	Contracts   []model.Contract         `yaml:"contracts"`
	Behavioral  *model.BehavioralProfile `yaml:"behavioral"`
	Snapshots   model.EngineSnapshots    `yaml:"snapshots"`
	Overrides   []model.DecisionOverride `yaml:"overrides"`
}

// Evaluation is the in-memory output of Evaluate.
type Evaluation struct {
	Trust   model.TrustProfile     `json:"trust_profile"`
	Summary model.ExecutiveSummary `json:"summary"`
}

// DecodeCase reads a YAML case and fills candidate IDs on nested records.
func DecodeCase(r io.Reader) (*Case, error) {
	var c Case
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, eris.Wrap(err, "engine: decode case")
	}
	if c.CandidateID == "" {
		return nil, eris.New("engine: case candidate_id is required")
	}
	for i := range c.Contracts {
		if c.Contracts[i].CandidateID == "" {
			c.Contracts[i].CandidateID = c.CandidateID
		}
	}
	if c.Behavioral != nil && c.Behavioral.CandidateID == "" {
		c.Behavioral.CandidateID = c.CandidateID
	}
	for i := range c.Overrides {
		if c.Overrides[i].CandidateID == "" {
			c.Overrides[i].CandidateID = c.CandidateID
		}
	}
	return &c, nil
}

// Evaluate runs the full pipeline on a case without a store. The case's
// as_of wins over the supplied instant.
func Evaluate(cal config.CalibrationConfig, c Case, asOf time.Time) Evaluation {
	if c.AsOf != nil {
		asOf = *c.AsOf
	}
	trust := scorer.NewCalculator(cal).Compute(c.CandidateID, c.Contracts, c.Behavioral, asOf)
	summary := decision.NewAssembler(cal).Assemble(decision.SummaryInput{
		CandidateID: c.CandidateID,
		Trust:       &trust,
		Snapshots:   c.Snapshots,
		Override:    decision.SelectActive(c.Overrides, asOf),
		AsOf:        asOf,
	})
	return Evaluation{Trust: trust, Summary: summary}
}
