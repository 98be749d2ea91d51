package workflow

import (
	"context"
	"fmt"
	"io"

	"bitbucket.org/partsadmin/parts_backend/models"
	"github.com/xuri/excelize/v2"
)

// ExportInventoryWorkbook writes the full inventory dataset as an xlsx
// workbook: one sheet per table plus the derived stock view. Used by the
// download endpoint and the standalone export command.
func ExportInventoryWorkbook(ctx context.Context, w io.Writer) error {

	f := excelize.NewFile()
	defer f.Close()

	if err := writeIncomingSheet(ctx, f); err != nil {
		return err
	}
	if err := writeUsageSheet(ctx, f); err != nil {
		return err
	}
	if err := writeInventorySheet(ctx, f); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	return f.Write(w)
}

func writeIncomingSheet(ctx context.Context, f *excelize.File) error {
	const sheet = "Incoming"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	data, err := models.GetAllIncoming(ctx)
	if err != nil {
		return err
	}

	headers := []string{"PartNumber", "PartName", "CategoryId", "Quantity",
		"PurchasePrice", "Currency", "ExchangeRate", "OriginalPrice",
		"PurchaseDate", "Supplier", "Purchaser", "InvoiceNumber", "Note", "CreatedAt"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, d := range data {
		row := i + 2
		f.SetCellValue(sheet, "A"+fmt.Sprint(row), d.PartNumber)
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), d.PartName)
		f.SetCellValue(sheet, "C"+fmt.Sprint(row), d.CategoryId)
		f.SetCellValue(sheet, "D"+fmt.Sprint(row), d.IncomingQuantity)
		f.SetCellValue(sheet, "E"+fmt.Sprint(row), d.PurchasePrice.String())
		f.SetCellValue(sheet, "F"+fmt.Sprint(row), d.Currency)
		f.SetCellValue(sheet, "G"+fmt.Sprint(row), d.ExchangeRate.String())
		f.SetCellValue(sheet, "H"+fmt.Sprint(row), d.OriginalPrice.String())
		if d.PurchaseDate != nil {
			f.SetCellValue(sheet, "I"+fmt.Sprint(row), d.PurchaseDate.Format("2006-01-02"))
		}
		f.SetCellValue(sheet, "J"+fmt.Sprint(row), d.Supplier)
		f.SetCellValue(sheet, "K"+fmt.Sprint(row), d.Purchaser)
		f.SetCellValue(sheet, "L"+fmt.Sprint(row), d.InvoiceNumber)
		f.SetCellValue(sheet, "M"+fmt.Sprint(row), d.Note)
		f.SetCellValue(sheet, "N"+fmt.Sprint(row), d.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func writeUsageSheet(ctx context.Context, f *excelize.File) error {
	const sheet = "Usage"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	data, err := models.GetAllUsage(ctx)
	if err != nil {
		return err
	}

	headers := []string{"PartNumber", "PartName", "QuantityUsed", "UsageLocation", "UsedAt", "CreatedBy"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, d := range data {
		row := i + 2
		f.SetCellValue(sheet, "A"+fmt.Sprint(row), d.PartNumber)
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), d.PartName)
		f.SetCellValue(sheet, "C"+fmt.Sprint(row), d.QuantityUsed)
		f.SetCellValue(sheet, "D"+fmt.Sprint(row), d.UsageLocation)
		f.SetCellValue(sheet, "E"+fmt.Sprint(row), d.UsedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheet, "F"+fmt.Sprint(row), d.CreatedBy)
	}
	return nil
}

func writeInventorySheet(ctx context.Context, f *excelize.File) error {
	const sheet = "CurrentStock"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	data, err := models.GetCurrentInventory(ctx)
	if err != nil {
		return err
	}

	headers := []string{"PartNumber", "PartName", "CategoryName", "TotalIncoming", "TotalUsed", "CurrentStock"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, d := range data {
		row := i + 2
		f.SetCellValue(sheet, "A"+fmt.Sprint(row), d.PartNumber)
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), d.PartName)
		f.SetCellValue(sheet, "C"+fmt.Sprint(row), d.CategoryName)
		f.SetCellValue(sheet, "D"+fmt.Sprint(row), d.TotalIncoming)
		f.SetCellValue(sheet, "E"+fmt.Sprint(row), d.TotalUsed)
		f.SetCellValue(sheet, "F"+fmt.Sprint(row), d.CurrentStock)
	}
	return nil
}
