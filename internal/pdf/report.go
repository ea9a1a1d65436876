package pdf

import (
	"bytes"
	"fmt"
	"time"

	"taskflow/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// ReportGenerator renders task listings as PDF documents.
type ReportGenerator struct {
	appName string
}

func NewReportGenerator(appName string) *ReportGenerator {
	return &ReportGenerator{appName: appName}
}

// TasksReport renders the user's created and assigned tasks as one document.
func (g *ReportGenerator) TasksReport(created, assigned []models.TaskView) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Tasks Report", false)
	pdf.SetAuthor(g.appName, false)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Tasks Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated "+time.Now().Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	g.section(pdf, "Created by me", created)
	pdf.Ln(6)
	g.section(pdf, "Assigned to me", assigned)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render tasks report: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *ReportGenerator) section(pdf *gofpdf.Fpdf, title string, tasks []models.TaskView) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")

	if len(tasks) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, "No tasks", "", 1, "L", false, 0, "")
		return
	}

	widths := []float64{70, 25, 20, 30, 35}
	headers := []string{"Title", "Status", "Priority", "Due", "Assignee"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, hd := range headers {
		pdf.CellFormat(widths[i], 7, hd, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, t := range tasks {
		assignee := "-"
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.Name
		}
		overdue := t.DueDate.Before(time.Now()) && t.Status != models.StatusCompleted
		if overdue {
			pdf.SetTextColor(200, 0, 0)
		}
		pdf.CellFormat(widths[0], 7, truncate(t.Title, 40), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, string(t.Status), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, string(t.Priority), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, t.DueDate.Format("2006-01-02"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 7, truncate(assignee, 20), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
		if overdue {
			pdf.SetTextColor(0, 0, 0)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
