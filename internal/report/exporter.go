package report

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"aquawatch/internal/backend"
	"aquawatch/internal/domain"
)

// ContentType of the exported workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Query resolved export parameters.
type Query struct {
	Range   Range
	Metrics []string
	TZ      string
}

// Exporter produces the workbook bytes for a query.
type Exporter interface {
	Export(ctx context.Context, q Query) ([]byte, error)
}

// HTTPExporter downloads the workbook generated server-side.
type HTTPExporter struct {
	client *backend.Client
}

func NewHTTPExporter(client *backend.Client) *HTTPExporter {
	return &HTTPExporter{client: client}
}

func (e *HTTPExporter) Export(ctx context.Context, q Query) ([]byte, error) {
	params := map[string]string{
		"from":    q.Range.From,
		"to":      q.Range.To,
		"metrics": strings.Join(q.Metrics, ","),
		"tz":      q.TZ,
	}
	return e.client.Download(ctx, "/sensor/report/excel", params, ContentType)
}

// PlaceholderExporter builds a one-row workbook when no backend is configured, so the
// download path can be exercised end to end.
type PlaceholderExporter struct {
	catalog *domain.Catalog
	now     func() time.Time
	rnd     func() float64
}

func NewPlaceholderExporter(catalog *domain.Catalog) *PlaceholderExporter {
	return &PlaceholderExporter{catalog: catalog, now: time.Now, rnd: rand.Float64}
}

func (e *PlaceholderExporter) Export(_ context.Context, q Query) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D1FAE5"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	headers := append([]string{"timestamp"}, q.Metrics...)
	row := []any{e.now().Format(dateLayout)}
	for range q.Metrics {
		row = append(row, float64(int(e.rnd()*1000))/100)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		if err := f.SetCellValue(sheetName, mustCell(col+1, 2), row[col]); err != nil {
			return nil, fmt.Errorf("failed to set value cell: %w", err)
		}
	}

	// second sheet documents the units and the requested range
	if _, err := f.NewSheet("Info"); err != nil {
		return nil, fmt.Errorf("failed to create info sheet: %w", err)
	}
	info := [][]any{
		{"from", q.Range.From},
		{"to", q.Range.To},
		{"tz", q.TZ},
	}
	for _, key := range q.Metrics {
		if m, ok := e.catalog.Get(key); ok {
			info = append(info, []any{m.Key, fmt.Sprintf("%s (%s)", m.Label, m.Unit)})
		}
	}
	for i, r := range info {
		if err := f.SetSheetRow("Info", mustCell(1, i+1), &r); err != nil {
			return nil, fmt.Errorf("failed to write info row: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func mustCell(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

// File a finished export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service validates report requests and delegates to an exporter.
type Service struct {
	catalog  *domain.Catalog
	exporter Exporter
	tz       string
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(catalog *domain.Catalog, exporter Exporter, tz string, logger *zap.Logger) *Service {
	if tz == "" {
		tz = "Asia/Bangkok"
	}
	return &Service{catalog: catalog, exporter: exporter, tz: tz, logger: logger, now: time.Now}
}

// Export runs validation, then the exporter.
func (s *Service) Export(ctx context.Context, req Request) (*File, error) {
	rng, metrics, err := req.Resolve(s.catalog)
	if err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeDate
	}

	data, err := s.exporter.Export(ctx, Query{Range: rng, Metrics: metrics, TZ: s.tz})
	if err != nil {
		s.logger.Error("Report export failed",
			zap.String("from", rng.From),
			zap.String("to", rng.To),
			zap.Error(err),
		)
		return nil, fmt.Errorf("export report: %w", err)
	}

	name := FileName(mode, rng, s.now())
	s.logger.Info("Report exported",
		zap.String("file", name),
		zap.Strings("metrics", metrics),
		zap.Int("bytes", len(data)),
	)
	return &File{Name: name, ContentType: ContentType, Data: data}, nil
}
