package interfaces

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	reporting "condo-cloud/internal/reporting/domain"
)

// BuildBalancePDF renders a balance report with income and expense
// breakdowns as a minimal PDF.
func BuildBalancePDF(balance reporting.BalanceReport, income reporting.IncomeReport, expense reporting.ExpenseReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Balance Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s to %s", balance.Range.From.Format("2006-01-02"), balance.Range.To.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Income: %d", balance.TotalIncome))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Expense: %d", balance.TotalExpense))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Net: %d", balance.Net))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Profit Margin: %.2f%%", balance.ProfitMargin))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Fund Balance: %d", balance.FundBalance))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Payment Method", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Count", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, mb := range income.ByMethod {
		pdf.CellFormat(70, 6, mb.Method, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", mb.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", mb.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Expense Category", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Count", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, cb := range expense.ByCategory {
		pdf.CellFormat(70, 6, cb.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", cb.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", cb.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildBalanceXLSX renders a balance report as a minimal XLSX.
func BuildBalanceXLSX(balance reporting.BalanceReport, income reporting.IncomeReport, expense reporting.ExpenseReport) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	incomeSheet := "income"
	expenseSheet := "expenses"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(incomeSheet)
	f.NewSheet(expenseSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Balance Report")
	_ = f.SetCellValue(summarySheet, "A3", "From")
	_ = f.SetCellValue(summarySheet, "B3", balance.Range.From.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A4", "To")
	_ = f.SetCellValue(summarySheet, "B4", balance.Range.To.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "Total Income")
	_ = f.SetCellValue(summarySheet, "B5", balance.TotalIncome)
	_ = f.SetCellValue(summarySheet, "A6", "Total Expense")
	_ = f.SetCellValue(summarySheet, "B6", balance.TotalExpense)
	_ = f.SetCellValue(summarySheet, "A7", "Net")
	_ = f.SetCellValue(summarySheet, "B7", balance.Net)
	_ = f.SetCellValue(summarySheet, "A8", "Profit Margin")
	_ = f.SetCellValue(summarySheet, "B8", balance.ProfitMargin)
	_ = f.SetCellValue(summarySheet, "A9", "Fund Balance")
	_ = f.SetCellValue(summarySheet, "B9", balance.FundBalance)

	_ = f.SetCellValue(incomeSheet, "A1", "Method")
	_ = f.SetCellValue(incomeSheet, "B1", "Amount")
	_ = f.SetCellValue(incomeSheet, "C1", "Count")
	for i, mb := range income.ByMethod {
		row := i + 2
		_ = f.SetCellValue(incomeSheet, fmt.Sprintf("A%d", row), mb.Method)
		_ = f.SetCellValue(incomeSheet, fmt.Sprintf("B%d", row), mb.Amount)
		_ = f.SetCellValue(incomeSheet, fmt.Sprintf("C%d", row), mb.Count)
	}

	_ = f.SetCellValue(expenseSheet, "A1", "Category")
	_ = f.SetCellValue(expenseSheet, "B1", "Amount")
	_ = f.SetCellValue(expenseSheet, "C1", "Count")
	for i, cb := range expense.ByCategory {
		row := i + 2
		_ = f.SetCellValue(expenseSheet, fmt.Sprintf("A%d", row), cb.Category)
		_ = f.SetCellValue(expenseSheet, fmt.Sprintf("B%d", row), cb.Amount)
		_ = f.SetCellValue(expenseSheet, fmt.Sprintf("C%d", row), cb.Count)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
