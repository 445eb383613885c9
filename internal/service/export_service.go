package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
	"github.com/madrasatech/madrasa-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat normalises a query-string format value, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ExportFormatCSV, nil
	case "pdf":
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

type exportExamRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.ExamDetail, error)
	ListSubmissions(ctx context.Context, tenantID, examID string) ([]models.ExamSubmissionDetail, error)
}

type exportHomeworkRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.HomeworkDetail, error)
	ListSubmissions(ctx context.Context, tenantID, homeworkID string) ([]models.HomeworkSubmissionDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered file ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders exam results and homework submissions as downloadable
// CSV or PDF files.
type ExportService struct {
	exams    exportExamRepository
	homework exportHomeworkRepository
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(exams exportExamRepository, homework exportHomeworkRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		exams:    exams,
		homework: homework,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ExamResults exports every submission of an exam with the preliminary score.
func (s *ExportService) ExamResults(ctx context.Context, identity models.Identity, examID string, format ExportFormat) (*ExportResult, error) {
	exam, err := s.exams.FindByID(ctx, identity.TenantID, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	submissions, err := s.exams.ListSubmissions(ctx, identity.TenantID, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	dataset := export.Dataset{
		Headers: []string{"Student Code", "Student Name", "Score", "Total Marks", "Submitted At"},
		Rows:    make([]map[string]string, 0, len(submissions)),
	}
	for _, sub := range submissions {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student Code": sub.StudentCode,
			"Student Name": sub.StudentName,
			"Score":        strconv.Itoa(sub.Score),
			"Total Marks":  strconv.Itoa(exam.TotalMarks),
			"Submitted At": sub.SubmittedAt.Format(time.RFC3339),
		})
	}

	title := fmt.Sprintf("Exam Results: %s", exam.Title)
	return s.render(dataset, title, s.buildFilename("exam-results", exam.ID, format), format)
}

// HomeworkSubmissions exports every submission of a homework with grades and
// feedback where present.
func (s *ExportService) HomeworkSubmissions(ctx context.Context, identity models.Identity, homeworkID string, format ExportFormat) (*ExportResult, error) {
	homework, err := s.homework.FindByID(ctx, identity.TenantID, homeworkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	submissions, err := s.homework.ListSubmissions(ctx, identity.TenantID, homeworkID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	dataset := export.Dataset{
		Headers: []string{"Student Code", "Student Name", "Grade", "Feedback", "Submitted At"},
		Rows:    make([]map[string]string, 0, len(submissions)),
	}
	for _, sub := range submissions {
		grade := ""
		if sub.Grade != nil {
			grade = strconv.FormatFloat(*sub.Grade, 'f', -1, 64)
		}
		feedback := ""
		if sub.Feedback != nil {
			feedback = *sub.Feedback
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student Code": sub.StudentCode,
			"Student Name": sub.StudentName,
			"Grade":        grade,
			"Feedback":     feedback,
			"Submitted At": sub.SubmittedAt.Format(time.RFC3339),
		})
	}

	title := fmt.Sprintf("Homework Submissions: %s", homework.Title)
	return s.render(dataset, title, s.buildFilename("homework-submissions", homework.ID, format), format)
}

func (s *ExportService) render(dataset export.Dataset, title, filename string, format ExportFormat) (*ExportResult, error) {
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func (s *ExportService) buildFilename(kind, id string, format ExportFormat) string {
	return fmt.Sprintf("%s-%s-%s.%s", kind, id, s.now().Format("20060102-150405"), format)
}
