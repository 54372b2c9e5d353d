package domain

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecipients_Separators(t *testing.T) {
	got := ParseRecipients(" a@b.com, c@d.org;e@f.net\n\ng@h.io   i@j.co ,, ;")
	assert.Equal(t, []string{"a@b.com", "c@d.org", "e@f.net", "g@h.io", "i@j.co"}, got)

	assert.Empty(t, ParseRecipients(""))
	assert.Empty(t, ParseRecipients(" ,;\n\t"))

	// non-ASCII spaces separate too
	assert.Equal(t, []string{"a@b.com", "c@d.com", "e@f.com", "g@h.com"},
		ParseRecipients("a@b.com\u00a0c@d.com\u3000e@f.com\u2028g@h.com"))
	assert.False(t, IsEmailish("a@b.com\u00a0c@d.com"))
}

func TestIsEmailish(t *testing.T) {
	for _, ok := range []string{"a@b.com", "staff@farm.co", "x.y+z@sub.domain.th"} {
		assert.True(t, IsEmailish(ok), ok)
	}
	for _, bad := range []string{"bad-email", "a@b", "@b.com", "a@.com@x", "a b@c.com", ""} {
		assert.False(t, IsEmailish(bad), bad)
	}
}

func TestValidate_RecipientsFirst(t *testing.T) {
	c := DefaultCatalog()
	th := c.Defaults("").Thresholds
	th["temp"] = Threshold{Min: 30, Max: 24, Enabled: true}

	err := Validate(c, ParseRecipients("a@b.com, bad-email"), th)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "recipients", ve.Field)
	assert.Contains(t, ve.Error(), "bad-email")
}

func TestValidate_MinNotLessThanMax(t *testing.T) {
	c := DefaultCatalog()
	th := c.Defaults("").Thresholds
	th["temp"] = Threshold{Min: 30, Max: 24, Enabled: true}

	err := Validate(c, nil, th)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "temp", ve.Field)
	assert.Contains(t, ve.Error(), "อุณหภูมิ")
}

func TestValidate_CatalogOrderFailFast(t *testing.T) {
	c := DefaultCatalog()
	th := c.Defaults("").Thresholds
	th["level"] = Threshold{Min: math.NaN(), Max: 25}
	th["turbidity"] = Threshold{Min: 5, Max: 5}

	err := ValidateThresholds(c, th)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "turbidity", ve.Field)

	th["turbidity"] = Threshold{Min: 0, Max: 50}
	err = ValidateThresholds(c, th)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "level", ve.Field)
	assert.Contains(t, ve.Error(), "numeric")
}

func TestValidate_InfiniteAndMissing(t *testing.T) {
	c := DefaultCatalog()
	th := c.Defaults("").Thresholds
	th["salinity"] = Threshold{Min: 0, Max: math.Inf(1)}
	assert.Error(t, ValidateThresholds(c, th))

	th = c.Defaults("").Thresholds
	delete(th, "salinity")
	assert.Error(t, ValidateThresholds(c, th))

	assert.NoError(t, Validate(c, []string{"a@b.com"}, c.Defaults("").Thresholds))
}

func TestCatalog_MergeFillsDefaults(t *testing.T) {
	c := DefaultCatalog()
	min := 20.0
	off := false
	raw := &RawConfiguration{
		Recipients: []string{"a@b.com"},
		Metrics: map[string]RawThreshold{
			"temp":    {Min: &min},
			"level":   {Enabled: &off},
			"unknown": {Min: &min},
		},
	}

	cfg := c.Merge("pond-1", raw)
	assert.Equal(t, "pond-1", cfg.DeviceID)
	assert.Equal(t, []string{"a@b.com"}, cfg.Recipients)
	assert.Equal(t, Threshold{Min: 20, Max: 30, Enabled: true}, cfg.Thresholds["temp"])
	assert.Equal(t, Threshold{Min: 10, Max: 25, Enabled: false}, cfg.Thresholds["level"])
	assert.Equal(t, Threshold{Min: 0, Max: 50, Enabled: true}, cfg.Thresholds["turbidity"])
	assert.NotContains(t, cfg.Thresholds, "unknown")
	assert.Len(t, cfg.Thresholds, 4)
}

func TestCatalog_MergeNil(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, c.Defaults(""), c.Merge("", nil))
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := NewCatalog(nil)
	assert.Error(t, err)
	_, err = NewCatalog([]Metric{{Key: "a", GoodMin: 1, GoodMax: 2}, {Key: "a", GoodMin: 1, GoodMax: 2}})
	assert.Error(t, err)
	_, err = NewCatalog([]Metric{{Key: "a", GoodMin: 2, GoodMax: 2}})
	assert.Error(t, err)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := `metrics:
  - key: temp
    label: Temperature
    unit: "°C"
    good_min: 24
    good_max: 30
    backend_field: temperature
  - key: ph
    label: pH
    good_min: 6.5
    good_max: 8.5
  - key: do
    label: Dissolved oxygen
    unit: mg/L
    good_min: 5
    good_max: 12
    backend_field: dissolved_oxygen
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	c, err := LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"temp", "ph", "do"}, c.Keys())

	ph, ok := c.Get("ph")
	require.True(t, ok)
	assert.Equal(t, "ph", ph.BackendField)
	m, ok := c.ByBackendField("dissolved_oxygen")
	require.True(t, ok)
	assert.Equal(t, "do", m.Key)
}

func TestMergeRecipients_AddOnly(t *testing.T) {
	got := MergeRecipients([]string{"a@b.com", "c@d.com"}, []string{"C@d.com", "e@f.com", "e@f.com"})
	assert.Equal(t, []string{"a@b.com", "c@d.com", "e@f.com"}, got)
}

func TestConfiguration_CloneIsDeep(t *testing.T) {
	c := DefaultCatalog()
	cfg := c.Defaults("d1")
	cfg.Recipients = []string{"a@b.com"}

	cp := cfg.Clone()
	cp.Thresholds["temp"] = Threshold{Min: 1, Max: 2}
	cp.Recipients[0] = "x@y.com"
	assert.Equal(t, 24.0, cfg.Thresholds["temp"].Min)
	assert.Equal(t, "a@b.com", cfg.Recipients[0])

	assert.Equal(t, []string{"level", "salinity", "temp", "turbidity"}, cfg.EnabledKeys())
}
