package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/export"
)

type reportEvidenceRepository interface {
	ListByIncident(ctx context.Context, incidentID int64) ([]models.Evidence, error)
}

// ReportService renders printable case reports for investigators and
// admins.
type ReportService struct {
	cases    *CaseService
	evidence reportEvidenceRepository
	pdf      *export.PDFExporter
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewReportService constructs a ReportService instance.
func NewReportService(cases *CaseService, evidence reportEvidenceRepository, pdf *export.PDFExporter, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ReportService{cases: cases, evidence: evidence, pdf: pdf, csv: export.NewCSVExporter(), logger: logger}
}

// CaseReport renders the case file for an incident as a PDF. Victims cannot
// export case files.
func (s *ReportService) CaseReport(ctx context.Context, caller *models.JWTClaims, incidentID int64) ([]byte, string, error) {
	if caller.Role != models.RoleInvestigator && !CapabilitiesFor(caller.Role).CanAssignCases() {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "")
	}

	detail, err := s.cases.Detail(ctx, caller, incidentID)
	if err != nil {
		return nil, "", err
	}
	evidence, err := s.evidence.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evidence")
	}

	incident := detail.Incident
	sections := []export.Section{
		{Label: "Case ID", Value: fmt.Sprintf("%d", incident.ID)},
		{Label: "Title", Value: incident.Title},
		{Label: "Status", Value: string(incident.Status)},
		{Label: "Reported by", Value: fmt.Sprintf("%s (%s)", incident.ReporterName, incident.ReporterEmail)},
		{Label: "Reported at", Value: incident.ReportedAt.Format(time.RFC1123)},
		{Label: "Description", Value: incident.Description},
	}
	if incident.CrimeTypeName != nil {
		sections = append(sections, export.Section{Label: "Crime type", Value: *incident.CrimeTypeName})
	}
	if incident.LocationLabel != nil {
		sections = append(sections, export.Section{Label: "Location", Value: *incident.LocationLabel})
	}
	if detail.Assignment != nil {
		sections = append(sections,
			export.Section{Label: "Priority", Value: string(detail.Assignment.Priority)},
			export.Section{Label: "Assigned at", Value: detail.Assignment.AssignedAt.Format(time.RFC1123)},
		)
		if detail.Assignee != nil {
			sections = append(sections, export.Section{
				Label: "Assigned to",
				Value: fmt.Sprintf("%s %s (%s)", detail.Assignee.FirstName, detail.Assignee.LastName, detail.Assignee.Email),
			})
		}
		if detail.Assignment.AssignedDeadline != nil {
			sections = append(sections, export.Section{Label: "Deadline", Value: detail.Assignment.AssignedDeadline.Format(time.RFC1123)})
		}
		if detail.Assignment.ResolvedAt != nil {
			sections = append(sections, export.Section{Label: "Resolved at", Value: detail.Assignment.ResolvedAt.Format(time.RFC1123)})
		}
	}
	sections = append(sections, export.Section{Label: "Evidence items", Value: fmt.Sprintf("%d", len(evidence))})
	for i, ev := range evidence {
		sections = append(sections, export.Section{
			Label: fmt.Sprintf("Evidence %d", i+1),
			Value: fmt.Sprintf("%s (submitted by %s)", ev.Description, ev.SubmitterEmail),
		})
	}

	pdfBytes, err := s.pdf.RenderReport(fmt.Sprintf("Case Report #%d", incident.ID), sections)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := fmt.Sprintf("case_report_%d.pdf", incident.ID)
	return pdfBytes, filename, nil
}

// CaseRosterCSV exports the caller's assigned case list as CSV. Admins may
// export another investigator's roster by passing their id.
func (s *ReportService) CaseRosterCSV(ctx context.Context, caller *models.JWTClaims, investigatorID int64) ([]byte, string, error) {
	if caller.Role != models.RoleInvestigator && !CapabilitiesFor(caller.Role).CanAssignCases() {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "")
	}

	cases, err := s.cases.AssignedCases(ctx, caller, investigatorID)
	if err != nil {
		return nil, "", err
	}

	csvBytes, err := s.csv.Render(rosterDataset(cases))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	return csvBytes, "assigned_cases.csv", nil
}

// CaseRosterPDF is the printable variant of the roster export, subject to
// the same role checks.
func (s *ReportService) CaseRosterPDF(ctx context.Context, caller *models.JWTClaims, investigatorID int64) ([]byte, string, error) {
	if caller.Role != models.RoleInvestigator && !CapabilitiesFor(caller.Role).CanAssignCases() {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "")
	}

	cases, err := s.cases.AssignedCases(ctx, caller, investigatorID)
	if err != nil {
		return nil, "", err
	}

	pdfBytes, err := s.pdf.RenderTable(rosterDataset(cases), "Assigned Cases")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	return pdfBytes, "assigned_cases.pdf", nil
}

func rosterDataset(cases []models.AssignedCase) export.Dataset {
	data := export.Dataset{
		Headers: []string{"case_id", "title", "status", "priority", "assigned_date", "deadline", "reported_by", "evidence_count"},
	}
	for _, c := range cases {
		row := map[string]string{
			"case_id":        fmt.Sprintf("%d", c.IncidentID),
			"title":          c.Title,
			"status":         string(c.Status),
			"priority":       string(c.Priority),
			"assigned_date":  c.AssignedAt.Format(time.RFC3339),
			"reported_by":    c.ReporterName,
			"evidence_count": fmt.Sprintf("%d", c.EvidenceCount),
		}
		if c.AssignedDeadline != nil {
			row["deadline"] = c.AssignedDeadline.Format(time.RFC3339)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}
