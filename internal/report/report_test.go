package report

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"aquawatch/internal/backend"
	"aquawatch/internal/domain"
)

func TestMonthToRange(t *testing.T) {
	r, err := MonthToRange("2024-02")
	require.NoError(t, err)
	assert.Equal(t, Range{From: "2024-02-01", To: "2024-02-29"}, r)

	r, err = MonthToRange("2025-12")
	require.NoError(t, err)
	assert.Equal(t, Range{From: "2025-12-01", To: "2025-12-31"}, r)

	_, err = MonthToRange("2025-13")
	assert.Error(t, err)
}

func TestResolve_ValidationOrder(t *testing.T) {
	c := domain.DefaultCatalog()
	field := func(err error) string {
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve), "got %v", err)
		return ve.Field
	}

	// metrics checked before the range
	_, _, err := Request{Mode: ModeDate}.Resolve(c)
	assert.Equal(t, "metrics", field(err))

	_, _, err = Request{Mode: ModeDate, From: "2025-01-02", Metrics: []string{"temp"}}.Resolve(c)
	assert.Equal(t, "range", field(err))

	_, _, err = Request{Mode: ModeDate, From: "2025-01-05", To: "2025-01-02", Metrics: []string{"temp"}}.Resolve(c)
	assert.Equal(t, "range", field(err))
	assert.Contains(t, err.Error(), "after")

	_, _, err = Request{Mode: ModeMonth, From: "2025-03", To: "2025-01", Metrics: []string{"temp"}}.Resolve(c)
	assert.Contains(t, err.Error(), "month")

	_, _, err = Request{Mode: ModeDate, From: "2025-01-01", To: "2025-01-02", Metrics: []string{"ph"}}.Resolve(c)
	assert.Equal(t, "metrics", field(err))

	_, _, err = Request{Mode: "week", From: "a", To: "b", Metrics: []string{"temp"}}.Resolve(c)
	assert.Equal(t, "mode", field(err))
}

func TestResolve_MonthExpandsAndDedupes(t *testing.T) {
	rng, metrics, err := Request{
		Mode:    ModeMonth,
		From:    "2025-01",
		To:      "2025-02",
		Metrics: []string{"level", "temp", "level", " "},
	}.Resolve(domain.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, Range{From: "2025-01-01", To: "2025-02-28"}, rng)
	assert.Equal(t, []string{"level", "temp"}, metrics)
}

func TestFileName(t *testing.T) {
	today := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "sensor-report_2025-01-01_2025-01-31_2025-03-10.xlsx",
		FileName(ModeDate, Range{From: "2025-01-01", To: "2025-01-31"}, today))
	assert.Equal(t, "sensor-report_by-month_2025-01-01_2025-02-28_2025-03-10.xlsx",
		FileName(ModeMonth, Range{From: "2025-01-01", To: "2025-02-28"}, today))
}

func TestPlaceholderExporter_Workbook(t *testing.T) {
	e := NewPlaceholderExporter(domain.DefaultCatalog())
	e.now = func() time.Time { return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) }
	e.rnd = func() float64 { return 0.5 }

	data, err := e.Export(context.Background(), Query{
		Range:   Range{From: "2025-03-01", To: "2025-03-10"},
		Metrics: []string{"temp", "salinity"},
		TZ:      "Asia/Bangkok",
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"timestamp", "temp", "salinity"}, rows[0])
	assert.Equal(t, []string{"2025-03-10", "5", "5"}, rows[1])

	info, err := f.GetRows("Info")
	require.NoError(t, err)
	assert.Equal(t, []string{"from", "2025-03-01"}, info[0])
	assert.Equal(t, []string{"temp", "อุณหภูมิ (°C)"}, info[3])
}

func TestHTTPExporter_Query(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", ContentType)
		_, _ = w.Write([]byte("PK\x03\x04xlsx"))
	}))
	defer srv.Close()

	e := NewHTTPExporter(backend.NewClient(srv.URL, time.Second, zap.NewNop()))
	data, err := e.Export(context.Background(), Query{
		Range:   Range{From: "2025-01-01", To: "2025-01-31"},
		Metrics: []string{"temp", "level"},
		TZ:      "Asia/Bangkok",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04xlsx"), data)

	require.NotNil(t, got)
	assert.Equal(t, "/sensor/report/excel", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "2025-01-01", q.Get("from"))
	assert.Equal(t, "2025-01-31", q.Get("to"))
	assert.Equal(t, "temp,level", q.Get("metrics"))
	assert.Equal(t, "Asia/Bangkok", q.Get("tz"))
	assert.Equal(t, ContentType, got.Header.Get("Accept"))
}

type failingExporter struct{}

func (failingExporter) Export(context.Context, Query) ([]byte, error) {
	return nil, &backend.HTTPError{Status: 500}
}

func TestService_Export(t *testing.T) {
	c := domain.DefaultCatalog()
	s := NewService(c, NewPlaceholderExporter(c), "", zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) }

	f, err := s.Export(context.Background(), Request{From: "2025-03-01", To: "2025-03-02", Metrics: []string{"temp"}})
	require.NoError(t, err)
	assert.Equal(t, "sensor-report_2025-03-01_2025-03-02_2025-03-10.xlsx", f.Name)
	assert.Equal(t, ContentType, f.ContentType)
	assert.NotEmpty(t, f.Data)

	s = NewService(c, failingExporter{}, "UTC", zap.NewNop())
	_, err = s.Export(context.Background(), Request{From: "2025-03-01", To: "2025-03-02", Metrics: []string{"temp"}})
	assert.True(t, errors.Is(err, backend.ErrTransport))
}

func TestApplyPreset(t *testing.T) {
	c := domain.DefaultCatalog()
	current := []string{"temp"}

	assert.Equal(t, []string{"temp", "turbidity", "salinity", "level"}, ApplyPreset(c, PresetAll, current, nil))
	assert.Empty(t, ApplyPreset(c, PresetNone, current, nil))
	assert.Equal(t, []string{"level", "salinity"}, ApplyPreset(c, PresetEnabled, current, []string{"level", "ph", "salinity", "level"}))
	assert.Equal(t, current, ApplyPreset(c, PresetEnabled, current, nil))
	assert.Equal(t, current, ApplyPreset(c, PresetEnabled, current, []string{"ph"}))
}

func TestToggleMetric(t *testing.T) {
	assert.Equal(t, []string{"temp", "level"}, ToggleMetric([]string{"temp"}, "level"))
	assert.Equal(t, []string{"level"}, ToggleMetric([]string{"temp", "level"}, "temp"))
}
