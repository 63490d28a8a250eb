package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/company"
)

// CompanyColumns is the header of company CSV and XLSX exports.
var CompanyColumns = []string{
	"company_name", "domain", "website", "industry", "employee_count", "address", "likelihood_score",
}

// LeadColumns is the header of lead CSV exports.
var LeadColumns = []string{
	"company_name", "name", "title", "email", "status", "likelihood_score",
}

// CompanyRow renders r in CompanyColumns order. Unset fields are empty.
func CompanyRow(r company.ScoredCompanyRecord) []string {
	employees := ""
	if r.EmployeeCount != nil {
		employees = strconv.Itoa(*r.EmployeeCount)
	}
	address := ""
	if r.Address != nil {
		address = *r.Address
	}
	return []string{
		r.Name,
		r.Domain,
		r.Website,
		r.IndustryString(),
		employees,
		address,
		formatScore(r.LikelihoodScore),
	}
}

// LeadRow renders l in LeadColumns order.
func LeadRow(l company.Lead) []string {
	return []string{
		l.CompanyName,
		l.Name,
		l.Title,
		l.Email,
		string(l.Status),
		formatScore(l.LikelihoodScore),
	}
}

// WriteCompaniesCSV writes scored companies to w.
func WriteCompaniesCSV(w io.Writer, records []company.ScoredCompanyRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = CompanyRow(r)
	}
	return writeCSV(w, CompanyColumns, rows)
}

// WriteLeadsCSV writes leads to w.
func WriteLeadsCSV(w io.Writer, leads []company.Lead) error {
	rows := make([][]string, len(leads))
	for i, l := range leads {
		rows[i] = LeadRow(l)
	}
	return writeCSV(w, LeadColumns, rows)
}

// SaveCompaniesCSV writes scored companies to the file at path.
func SaveCompaniesCSV(path string, records []company.ScoredCompanyRecord) error {
	return saveFile(path, func(w io.Writer) error { return WriteCompaniesCSV(w, records) })
}

// SaveLeadsCSV writes leads to the file at path.
func SaveLeadsCSV(path string, leads []company.Lead) error {
	return saveFile(path, func(w io.Writer) error { return WriteLeadsCSV(w, leads) })
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "export: write csv rows")
	}
	return nil
}

func saveFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", path)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
