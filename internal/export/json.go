// Package export reads and writes pipeline artifacts (JSON, CSV, XLSX) and
// pushes verified leads to external systems.
package export

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/company"
)

// WriteJSON writes v as indented JSON to path, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "export: marshal %s", path)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "export: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "export: decode %s", path)
	}
	return nil
}

// Load reads a JSON array from path. A missing or malformed file is logged
// and yields an empty list.
func Load[T any](path string) []T {
	var out []T
	if err := ReadJSON(path, &out); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("export: input file not found, using empty list", zap.String("path", path))
		} else {
			zap.L().Warn("export: input file unreadable, using empty list", zap.String("path", path), zap.Error(err))
		}
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}

// LoadRecords reads a company record list with the empty-list fallback.
func LoadRecords(path string) []company.CompanyRecord {
	return Load[company.CompanyRecord](path)
}

// LoadRawSource reads a raw source export (loosely-typed objects) and
// converts it to records tagged with source. Failures yield an empty list.
func LoadRawSource(path, source string) []company.CompanyRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("export: source file unreadable, using empty list",
			zap.String("source", source),
			zap.String("path", path),
			zap.Error(err),
		)
		return []company.CompanyRecord{}
	}
	recs, err := company.DecodeRawRecords(data, source)
	if err != nil {
		zap.L().Warn("export: source file malformed, using empty list",
			zap.String("source", source),
			zap.Error(err),
		)
		return []company.CompanyRecord{}
	}
	return recs
}
