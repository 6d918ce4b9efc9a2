package leads

import (
	"context"
	"errors"
	"io"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/store"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Leads"

var exportHeader = []any{"ID", "Name", "Company", "Phone", "Email", "Status", "Telecaller", "Last Activity", "Created At"}

// ExportXLSX writes the campaign's leads as an .xlsx workbook to w.
func (s *Service) ExportXLSX(ctx context.Context, campaignID int64, w io.Writer) error {
	if _, err := s.Store.GetCampaign(ctx, campaignID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Campaign not found")
		}
		return apperr.Persistence("get campaign", err)
	}
	rows, err := s.Store.ListLeads(ctx, store.LeadFilter{CampaignID: campaignID})
	if err != nil {
		return apperr.Persistence("list leads", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, l := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{l.ID, l.Name, l.Company, l.Phone, l.Email, l.Status, l.AgentName, l.LastActivity, l.CreatedAt.Format("2006-01-02 15:04")}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "I", 18); err != nil {
		return err
	}
	return f.Write(w)
}
