package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	billing "condo-cloud/internal/billing/domain"
)

// BuildChargePDF renders a minimal PDF for a charge with its allocation table.
func BuildChargePDF(charge *billing.Charge, allocations []billing.Allocation, progress billing.ChargeProgress) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Building Charge")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Title: %s", charge.Title))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Building: %s", charge.BuildingID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Method: %s", charge.Method))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Due: %s", charge.DueDate.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", charge.Status))
	pdf.Ln(5)
	if progress != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Progress: %s", progress))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Created: %s", charge.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	if !charge.IssuedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Issued: %s", charge.IssuedAt.Format(time.RFC3339)))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Total Amount: %d", charge.EffectiveTotal()))
	pdf.Ln(8)

	if len(charge.Items) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(70, 6, "Item", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Category", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, item := range charge.Items {
			pdf.CellFormat(70, 6, item.Title, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, item.Category, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%d", item.Amount), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	// Allocation table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Unit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Paid", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, alloc := range allocations {
		pdf.CellFormat(50, 6, alloc.UnitID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%d", alloc.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%d", alloc.PaidSum), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, string(alloc.Status), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildChargeXLSX renders a minimal XLSX for a charge.
func BuildChargeXLSX(charge *billing.Charge, allocations []billing.Allocation, progress billing.ChargeProgress) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	allocSheet := "allocations"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(allocSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Building Charge")
	_ = f.SetCellValue(summarySheet, "A3", "Title")
	_ = f.SetCellValue(summarySheet, "B3", charge.Title)
	_ = f.SetCellValue(summarySheet, "A4", "Building")
	_ = f.SetCellValue(summarySheet, "B4", charge.BuildingID)
	_ = f.SetCellValue(summarySheet, "A5", "Method")
	_ = f.SetCellValue(summarySheet, "B5", string(charge.Method))
	_ = f.SetCellValue(summarySheet, "A6", "Due Date")
	_ = f.SetCellValue(summarySheet, "B6", charge.DueDate.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A7", "Status")
	_ = f.SetCellValue(summarySheet, "B7", string(charge.Status))
	_ = f.SetCellValue(summarySheet, "A8", "Progress")
	_ = f.SetCellValue(summarySheet, "B8", string(progress))
	_ = f.SetCellValue(summarySheet, "A9", "Total Amount")
	_ = f.SetCellValue(summarySheet, "B9", charge.EffectiveTotal())

	_ = f.SetCellValue(allocSheet, "A1", "Unit")
	_ = f.SetCellValue(allocSheet, "B1", "Amount")
	_ = f.SetCellValue(allocSheet, "C1", "Paid")
	_ = f.SetCellValue(allocSheet, "D1", "Status")
	for i, alloc := range allocations {
		row := i + 2
		_ = f.SetCellValue(allocSheet, fmt.Sprintf("A%d", row), alloc.UnitID)
		_ = f.SetCellValue(allocSheet, fmt.Sprintf("B%d", row), alloc.Amount)
		_ = f.SetCellValue(allocSheet, fmt.Sprintf("C%d", row), alloc.PaidSum)
		_ = f.SetCellValue(allocSheet, fmt.Sprintf("D%d", row), string(alloc.Status))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
