package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/model"
	"covid-impact-pipeline/pkg/utils"

	"github.com/xuri/excelize/v2"
)

// ------------------- Ingestion -------------------

// LoadTable reads one source into a RawTable. HeaderSkipRows rows are
// discarded; the next row supplies the column labels and every later row
// must have exactly as many cells. For CSV the skipped rows are physical
// lines, blank ones included; for XLSX they are sheet rows.
func LoadTable(ctx context.Context, src config.SourceConfig) (*model.RawTable, error) {
	if src.HeaderSkipRows < 0 {
		return nil, sourceErr(src.ID, ErrMalformedTable, "header_skip_rows must be >= 0, got %d", src.HeaderSkipRows)
	}

	rc, err := openSource(ctx, src.Path)
	if err != nil {
		return nil, &SourceError{Source: src.ID, Err: err}
	}
	defer rc.Close()

	var (
		rows [][]string
		skip int
	)
	switch strings.ToLower(src.Format) {
	case "", config.FormatCSV:
		br := bufio.NewReader(rc)
		if err = skipLines(br, src.HeaderSkipRows); err == nil {
			rows, err = readCSV(ctx, br, src.Delimiter)
		}
	case config.FormatXLSX:
		rows, err = readXLSX(rc, src.Sheet)
		skip = src.HeaderSkipRows
	default:
		err = fmt.Errorf("%w: unknown source format %q", ErrMalformedTable, src.Format)
	}
	if err != nil {
		return nil, &SourceError{Source: src.ID, Err: err}
	}

	return buildTable(src, rows, skip)
}

// openSource opens a local file or fetches an http(s) URL.
func openSource(ctx context.Context, pathOrURL string) (io.ReadCloser, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pathOrURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to GET %s: %v", ErrSourceNotFound, pathOrURL, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: GET %s returned %s", ErrSourceNotFound, pathOrURL, resp.Status)
		}
		return resp.Body, nil
	}

	file, err := os.Open(pathOrURL)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
		}
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrSourceNotFound, pathOrURL, err)
	}
	return file, nil
}

// ------------------- CSV Ingestion -------------------

// skipLines discards n physical lines. Running out of input is not an error
// here; buildTable reports the missing header.
func skipLines(br *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("%w: CSV read error: %v", ErrMalformedTable, err)
		}
	}
	return nil
}

func readCSV(ctx context.Context, r io.Reader, delimiter string) ([][]string, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	if delimiter != "" {
		csvReader.Comma = []rune(delimiter)[0]
	}

	var rows [][]string
	for {
		if len(rows)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := csvReader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: CSV read error: %v", ErrMalformedTable, err)
		}
		rows = append(rows, record)
	}
}

// ------------------- XLSX Ingestion -------------------

// readXLSX returns the cells of one sheet, or of the first sheet when none
// is named. Trailing empty cells are dropped by excelize, so short rows are
// padded later against the header.
func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", ErrMalformedTable, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedTable)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrMalformedTable, sheet, err)
	}
	return rows, nil
}

// buildTable takes the header from rows[skip]. Row numbers in errors count
// from the top of the source.
func buildTable(src config.SourceConfig, rows [][]string, skip int) (*model.RawTable, error) {
	if len(rows) <= skip {
		return nil, sourceErr(src.ID, ErrMalformedTable, "no header row after skipping %d rows", src.HeaderSkipRows)
	}

	header := rows[skip]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = utils.CleanHeader(h)
	}

	padShort := strings.EqualFold(src.Format, config.FormatXLSX)
	body := rows[skip+1:]
	table := &model.RawTable{
		Source:  src.ID,
		Columns: columns,
		Rows:    make([][]string, 0, len(body)),
	}
	for i, row := range body {
		if len(row) != len(columns) {
			if !padShort || len(row) > len(columns) {
				return nil, sourceErr(src.ID, ErrMalformedTable,
					"row %d has %d cells, header has %d", src.HeaderSkipRows+i+2, len(row), len(columns))
			}
			padded := make([]string, len(columns))
			copy(padded, row)
			row = padded
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
