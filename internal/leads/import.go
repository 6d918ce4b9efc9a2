package leads

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/audit"
)

// ParseCSV reads lead rows from a CSV with a header line. Recognized
// columns are name, company, phone and email in any order and case; other
// columns (status included) are ignored. Blank lines are skipped.
func ParseCSV(r io.Reader) ([]RawLead, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Validation("CSV file is empty")
	}
	if err != nil {
		return nil, apperr.Validation("Malformed CSV: " + err.Error())
	}

	cols := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	if _, ok := cols["phone"]; !ok {
		return nil, apperr.Validation("CSV must have a phone column")
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []RawLead
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Validation("Malformed CSV: " + err.Error())
		}
		l := RawLead{
			Name:    field(rec, "name"),
			Company: field(rec, "company"),
			Phone:   field(rec, "phone"),
			Email:   field(rec, "email"),
		}
		if l == (RawLead{}) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// ImportCSV parses r and feeds the rows through AssignBatch.
func (s *Service) ImportCSV(ctx context.Context, campaignID int64, r io.Reader) (BatchResult, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return BatchResult{}, err
	}
	res, err := s.AssignBatch(ctx, campaignID, rows)
	if err != nil {
		return BatchResult{}, err
	}
	s.Audit.Record(ctx, audit.Event{
		Type:       audit.EventLeadsImported,
		CampaignID: &campaignID,
		Message:    res.Message,
	}, map[string]any{"count": res.Count})
	return res, nil
}
