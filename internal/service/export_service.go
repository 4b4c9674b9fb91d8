package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/acadops/course-allocation-api/internal/models"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
	"github.com/acadops/course-allocation-api/pkg/export"
)

// Export formats supported for allocation reports.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportedReport carries the rendered document and its metadata.
type ExportedReport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders allocation statistics as downloadable reports.
type ExportService struct {
	stats  *StatsService
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the report exporter.
func NewExportService(stats *StatsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		stats:  stats,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// RenderAllocationReport renders the faculty workload breakdown plus the
// allocation summary for the scope in the requested format.
func (s *ExportService) RenderAllocationReport(ctx context.Context, scope models.AllocationScope, format string) (*ExportedReport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	stats, _, err := s.stats.ComputeStats(ctx, scope)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Faculty", "Department", "Courses", "Share"},
	}
	for _, row := range stats.Faculty.Workload {
		share := 0
		if stats.Courses.Assigned > 0 {
			share = row.CourseCount * 100 / stats.Courses.Assigned
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Faculty":    row.FacultyName,
			"Department": row.Department,
			"Courses":    strconv.Itoa(row.CourseCount),
			"Share":      strconv.Itoa(share) + "%",
		})
	}
	dataset.Rows = append(dataset.Rows, map[string]string{
		"Faculty":    "TOTAL",
		"Department": "",
		"Courses":    strconv.Itoa(stats.Courses.Assigned),
		"Share":      strconv.Itoa(stats.Courses.AssignmentRate) + "% assigned",
	})

	title := fmt.Sprintf("Faculty Allocation %s %s", scope.AcademicYear, scope.Semester)
	base := fmt.Sprintf("allocation-report-%s-%s", scope.AcademicYear, scope.Semester)

	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ExportedReport{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ExportedReport{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	}
}
