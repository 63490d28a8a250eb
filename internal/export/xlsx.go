package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-cli/internal/company"
)

// SaveCompaniesXLSX writes scored companies to a single-sheet workbook with
// the same columns as the CSV export. Scores and employee counts are numeric
// cells.
func SaveCompaniesXLSX(path string, records []company.ScoredCompanyRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Companies")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range CompanyColumns {
		header.AddCell().SetString(col)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Domain)
		row.AddCell().SetString(r.Website)
		row.AddCell().SetString(r.IndustryString())
		if r.EmployeeCount != nil {
			row.AddCell().SetInt(*r.EmployeeCount)
		} else {
			row.AddCell().SetString("")
		}
		if r.Address != nil {
			row.AddCell().SetString(*r.Address)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloat(r.LikelihoodScore)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "xlsx: create dir for %s", path)
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}
