package store

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/crewvet/trust-cli/internal/model"
)

// contractRow flattens a contract into contractColumns order.
func contractRow(c model.Contract) []any {
	var end *time.Time
	if c.EndDate != nil {
		e := c.EndDate.UTC()
		end = &e
	}
	return []any{c.ID, c.CandidateID, c.CompanyName, c.RankCode, c.VesselType, c.StartDate.UTC(), end}
}

// trustProfileRow flattens a profile into trustProfileColumns order with
// flags and detail encoded as JSON.
func trustProfileRow(p *model.TrustProfile) ([]any, error) {
	flags := p.Flags
	if flags == nil {
		flags = []string{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal trust flags")
	}
	detailJSON, err := json.Marshal(p.Detail)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal trust detail")
	}
	return []any{
		p.CandidateID, p.CRIScore, string(p.ConfidenceLevel), p.ShortContractRatio, p.OverlapCount,
		p.GapMonthsTotal, p.UniqueCompanyCount3y, p.RankAnomalyFlag, p.FrequentSwitchFlag,
		p.TimelineInconsistencyFlag, flagsJSON, detailJSON, p.ConfigHash, p.ComputedAt.UTC(),
	}, nil
}

// auditEventRow flattens an event into auditEventColumns order.
func auditEventRow(e model.AuditEvent) ([]any, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal %s payload", e.EventType)
	}
	return []any{e.ID, e.CandidateID, e.EventType, payload, e.CreatedAt.UTC()}, nil
}

// decodeTrustProfile fills the JSON columns of a scanned profile.
func decodeTrustProfile(p *model.TrustProfile, flagsJSON, detailJSON []byte) error {
	if err := json.Unmarshal(flagsJSON, &p.Flags); err != nil {
		return eris.Wrap(err, "store: unmarshal trust flags")
	}
	if err := json.Unmarshal(detailJSON, &p.Detail); err != nil {
		return eris.Wrap(err, "store: unmarshal trust detail")
	}
	return nil
}
