package model

import "time"

// Department groups canonical ranks into a single promotion ladder.
type Department string

const (
	DepartmentDeck       Department = "deck"
	DepartmentEngine     Department = "engine"
	DepartmentElectrical Department = "electrical"
	DepartmentCatering   Department = "catering"
)

// CanonicalRank is a normalized rank from one department ladder.
// Level 1 is the lowest rank of the department.
type CanonicalRank struct {
	Code       string     `json:"code" yaml:"code"`
	Department Department `json:"department" yaml:"department"`
	Level      int        `json:"level" yaml:"level"`
}

// Contract is a single stored work contract of a candidate.
// A nil EndDate marks an open-ended (ongoing) contract.
type Contract struct {
	ID          string     `json:"id" yaml:"id"`
	CandidateID string     `json:"candidate_id" yaml:"candidate_id"`
	CompanyName string     `json:"company_name" yaml:"company_name"`
	RankCode    string     `json:"rank_code" yaml:"rank_code"`
	VesselType  string     `json:"vessel_type,omitempty" yaml:"vessel_type"`
	StartDate   time.Time  `json:"start_date" yaml:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty" yaml:"end_date"`
}

// IsOpen reports whether the contract has no end date yet.
func (c Contract) IsOpen() bool {
	return c.EndDate == nil
}

// EndOr returns the end date, or asOf when the contract is still open.
func (c Contract) EndOr(asOf time.Time) time.Time {
	if c.EndDate == nil {
		return asOf
	}
	return *c.EndDate
}

// BehavioralFlag is a single finding of the behavioral-profile collaborator.
type BehavioralFlag struct {
	Type     string `json:"type" yaml:"type"`
	Severity string `json:"severity" yaml:"severity"`
	Detail   string `json:"detail,omitempty" yaml:"detail"`
}

// BehavioralProfile is the precomputed behavioral signal for a candidate.
// A nil *BehavioralProfile means no behavioral data exists.
type BehavioralProfile struct {
	CandidateID string           `json:"candidate_id" yaml:"candidate_id"`
	Flags       []BehavioralFlag `json:"flags" yaml:"flags"`
	ComputedAt  time.Time        `json:"computed_at" yaml:"computed_at"`
}
