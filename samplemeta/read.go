package samplemeta

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/rnadiff"
	"github.com/extrame/xls"
)

// ReadFile loads a metadata table from a local or gs:// path. Files ending in
// .xls are read as spreadsheets (first sheet); anything else is treated as
// delimited text with an auto-detected delimiter.
func ReadFile(ctx context.Context, path string, client *storage.Client) (*Table, error) {
	lower := strings.ToLower(path)
	compressed := strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".xz") || strings.HasSuffix(lower, ".bz2")

	switch strings.ToLower(filepath.Ext(strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(lower, ".gz"), ".xz"), ".bz2"))) {
	case ".xlsx", ".xlsm":
		return nil, fmt.Errorf("%s: xlsx workbooks are not supported; save the sheet as .xls or CSV", path)
	case ".xls":
		if !compressed {
			rsc, err := rnadiff.OpenReadSeeker(ctx, path, client)
			if err != nil {
				return nil, err
			}
			defer rsc.Close()
			return readXLS(rsc, path)
		}
		b, err := rnadiff.ReadAllInput(ctx, path, client)
		if err != nil {
			return nil, err
		}
		return readXLS(bytes.NewReader(b), path)
	}

	b, err := rnadiff.ReadAllInput(ctx, path, client)
	if err != nil {
		return nil, err
	}

	return ReadDelimited(bytes.NewReader(b))
}

func readXLS(r io.ReadSeeker, path string) (*Table, error) {
	records, err := ReadXLSRecords(r, 0)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}
	return FromRecords(records)
}

// ReadDelimited parses delimited text with a header row.
func ReadDelimited(r io.Reader) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	cr := csv.NewReader(bytes.NewReader(b))
	cr.Comma = rnadiff.DetermineDelimiter(b)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	return FromRecords(records)
}

// ReadXLSRecords returns every row of one sheet of an xls workbook as strings.
// Trailing rows that are entirely empty are dropped.
func ReadXLSRecords(r io.ReadSeeker, sheetID int) ([][]string, error) {
	spreadsheet, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, err
	}

	if n := spreadsheet.NumSheets(); sheetID >= n {
		return nil, fmt.Errorf("workbook has %d sheets; sheet %d requested", n, sheetID)
	}

	sheet := spreadsheet.GetSheet(sheetID)
	if sheet == nil {
		return nil, fmt.Errorf("Sheet %d was nil", sheetID)
	}

	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			records = append(records, nil)
			continue
		}

		rec := make([]string, row.LastCol()+1)
		for colID := 0; colID <= row.LastCol(); colID++ {
			rec[colID] = row.Col(colID)
		}
		records = append(records, rec)
	}

	for len(records) > 0 && emptyRecord(records[len(records)-1]) {
		records = records[:len(records)-1]
	}

	return records, nil
}

// FromRecords builds a table from a header row followed by data rows. Header
// matching is case-insensitive; sample, diagnosis and lobe are required.
// Entirely empty rows are skipped.
func FromRecords(records [][]string) (*Table, error) {
	if len(records) < 1 {
		return nil, fmt.Errorf("metadata is empty")
	}

	colSample, colDiagnosis, colLobe := -1, -1, -1
	extra := make(map[int]string)
	t := &Table{}
	for i, v := range records[0] {
		// Excel's "CSV UTF-8" export starts the file with a byte-order mark.
		if i == 0 {
			v = strings.TrimPrefix(v, "\ufeff")
		}
		name := strings.ToLower(strings.TrimSpace(v))
		switch name {
		case SampleColumn:
			colSample = i
		case DiagnosisColumn:
			colDiagnosis = i
		case LobeColumn:
			colLobe = i
		case "":
		default:
			extra[i] = name
			t.ExtraColumns = append(t.ExtraColumns, name)
		}
	}

	missing := make([]string, 0)
	if colSample < 0 {
		missing = append(missing, SampleColumn)
	}
	if colDiagnosis < 0 {
		missing = append(missing, DiagnosisColumn)
	}
	if colLobe < 0 {
		missing = append(missing, LobeColumn)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("metadata header is missing required columns %v (found %v)", missing, records[0])
	}

	for _, rec := range records[1:] {
		if emptyRecord(rec) {
			continue
		}

		s := Sample{
			ID:        cell(rec, colSample),
			Diagnosis: cell(rec, colDiagnosis),
			Lobe:      cell(rec, colLobe),
			Extra:     make(map[string]string, len(extra)),
		}
		for i, name := range extra {
			s.Extra[name] = cell(rec, i)
		}
		t.Samples = append(t.Samples, s)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func emptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
