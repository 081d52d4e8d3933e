package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/model"
	"covid-impact-pipeline/pkg/utils"

	"go.uber.org/zap"
)

// AggregateSaver persists continent aggregates. *store.Store implements it.
type AggregateSaver interface {
	SaveAggregates(ctx context.Context, runID, dataset string, recs []model.AggregateRecord) (int, error)
}

// ExportOptions tell Export where to write.
type ExportOptions struct {
	RunID   string
	Dir     string
	Formats []string
	// Store receives the aggregates when set.
	Store  AggregateSaver
	Logger *zap.Logger
}

// Exporter writes built datasets to files and to the store.
type Exporter struct {
	opts   ExportOptions
	output *utils.OutputManager
	logger *zap.Logger
}

// NewExporter returns an Exporter writing under opts.Dir/<run id>.
func NewExporter(opts ExportOptions) *Exporter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		opts:   opts,
		output: utils.NewOutputManager(opts.Dir),
		logger: logger.With(zap.String("run_id", opts.RunID)),
	}
}

// Export writes every dataset in every configured format, then to the
// store. A failed export is reported in its result and does not stop the
// others.
func (e *Exporter) Export(ctx context.Context, datasets []*Dataset) []model.ExportResult {
	var results []model.ExportResult
	for _, d := range datasets {
		if ctx.Err() != nil {
			break
		}
		for _, format := range e.opts.Formats {
			results = append(results, e.exportFiles(d, format)...)
		}
		if e.opts.Store != nil {
			results = append(results, e.exportToStore(ctx, d))
		}
	}
	return results
}

func (e *Exporter) exportFiles(d *Dataset, format string) []model.ExportResult {
	switch format {
	case config.FormatCSV:
		results := []model.ExportResult{
			e.writeFile(d.ID, d.ID+"_aggregates.csv", func(path string) (int, error) {
				return writeAggregatesCSV(path, d)
			}),
			e.writeFile(d.ID, d.ID+"_records.csv", func(path string) (int, error) {
				return writeRecordsCSV(path, d.Records)
			}),
		}
		for _, metric := range d.Metrics {
			results = append(results, e.writeFile(d.ID, d.ID+"_"+metric+"_wide.csv", func(path string) (int, error) {
				return writeWideCSV(path, d, metric)
			}))
		}
		return results
	case config.FormatJSON:
		return []model.ExportResult{
			e.writeFile(d.ID, d.ID+".json", func(path string) (int, error) {
				return writeDatasetJSON(path, e.opts.RunID, d)
			}),
		}
	default:
		return []model.ExportResult{e.result("file", format, d.ID, 0, fmt.Errorf("unsupported export format %q", format))}
	}
}

func (e *Exporter) writeFile(dataset, name string, write func(path string) (int, error)) model.ExportResult {
	path, err := e.output.GetOutputFilePath(e.opts.RunID, name)
	if err != nil {
		return e.result(e.output.GetFileType(name), name, dataset, 0, err)
	}
	n, err := write(path)
	return e.result(e.output.GetFileType(name), path, dataset, n, err)
}

// exportToStore saves every metric of the dataset in a single call so a
// failure leaves none of the dataset in the store.
func (e *Exporter) exportToStore(ctx context.Context, d *Dataset) model.ExportResult {
	var recs []model.AggregateRecord
	for _, metric := range d.Metrics {
		recs = append(recs, d.Aggregates[metric]...)
	}
	n, err := e.opts.Store.SaveAggregates(ctx, e.opts.RunID, d.ID, recs)
	return e.result("database", "aggregates", d.ID, n, err)
}

func (e *Exporter) result(kind, path, dataset string, n int, err error) model.ExportResult {
	res := model.ExportResult{
		Type:        kind,
		Path:        path,
		Dataset:     dataset,
		RecordCount: n,
		Success:     err == nil,
		Timestamp:   time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
		e.logger.Error("export failed", zap.String("dataset", dataset), zap.String("path", path), zap.Error(err))
	} else {
		e.logger.Info("export completed", zap.String("dataset", dataset), zap.String("path", path), zap.Int("records", n))
	}
	return res
}

func writeCSV(path string, header []string, rows [][]string) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("failed to write rows: %w", err)
	}
	return len(rows), nil
}

func writeAggregatesCSV(path string, d *Dataset) (int, error) {
	var rows [][]string
	for _, metric := range d.Metrics {
		for _, a := range d.Aggregates[metric] {
			rows = append(rows, []string{
				a.Continent,
				strconv.Itoa(a.Year),
				a.Metric,
				strconv.FormatFloat(a.Value, 'f', -1, 64),
				strconv.Itoa(a.Count),
			})
		}
	}
	return writeCSV(path, []string{"continent", "year", "metric", "value", "count"}, rows)
}

func writeRecordsCSV(path string, records []model.GeoRecord) (int, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Entity,
			strconv.Itoa(r.Year),
			r.Metric,
			r.Continent,
			r.ISO3,
			cell(r.Value),
		})
	}
	return writeCSV(path, []string{"entity", "year", "metric", "continent", "iso3", "value"}, rows)
}

func writeWideCSV(path string, d *Dataset, metric string) (int, error) {
	long := make([]model.LongRecord, 0, len(d.Records))
	for _, r := range d.Records {
		long = append(long, r.LongRecord)
	}
	table := Pivot(long, metric).Table(d.ID, "entity")
	return writeCSV(path, table.Columns, table.Rows)
}

func cell(v model.Value) string {
	if v.IsMissing() {
		return ""
	}
	return v.String()
}

func writeDatasetJSON(path, runID string, d *Dataset) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	payload := map[string]interface{}{
		"export_info": map[string]interface{}{
			"run_id":       runID,
			"dataset":      d.ID,
			"exported_at":  time.Now().UTC(),
			"record_count": len(d.Records),
		},
		"metrics":    d.Metrics,
		"aggregates": d.Aggregates,
		"records":    d.Records,
	}
	if err := encoder.Encode(payload); err != nil {
		return 0, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return len(d.Records), nil
}
