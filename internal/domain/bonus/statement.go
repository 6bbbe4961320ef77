package bonus

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
)

// WriteStatementPDF renders a one-page bonus statement. The core fonts have
// no CJK glyphs, so labels are ASCII and names are passed through the
// cp1252 translator. Names it cannot represent print as the entry ID.
func WriteStatementPDF(w io.Writer, entry Entry) error {
	b := entry.Breakdown
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Bonus Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Employee: %s", statementName(entry))))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Period: %s", entry.Record.Period)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Recorded: %s", entry.RecordedAt.UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(10)

	lines := [][2]string{
		{"Monthly salary", entry.Record.MonthlySalary.StringFixed(0)},
		{"Base bonus months", entry.Record.BaseBonusMonths.String()},
		{"Base bonus amount", b.BaseBonusAmount.StringFixed(0)},
		{"Numeric score (60%)", FormatPercent(b.NumericScore)},
		{"Behavioral score (25%)", FormatPercent(b.BehavioralScore)},
		{"Posture score (15%)", FormatPercent(b.PostureScore)},
		{"Rate before adjustment", FormatPercent(b.PreAdjustmentRate)},
		{"Adjustment factor", b.AdjustmentFactor.StringFixed(2)},
		{"Adjusted rate", FormatPercent(b.AdjustedRate)},
		{"Final amount (JPY)", strconv.FormatInt(b.FinalAmount, 10)},
	}
	for _, line := range lines {
		pdf.CellFormat(80, 8, line[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, line[1], "", 1, "R", false, 0, "")
	}

	if entry.Record.Comment != "" {
		pdf.Ln(4)
		pdf.MultiCell(0, 6, tr("Comment: "+entry.Record.Comment), "", "L", false)
	}
	return pdf.Output(w)
}

func statementName(entry Entry) string {
	name := strings.TrimSpace(entry.Record.EmployeeName)
	if name == "" || strings.IndexFunc(name, func(r rune) bool { return r > unicode.MaxLatin1 }) >= 0 {
		return "entry " + entry.ID
	}
	return name
}
