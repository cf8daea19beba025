package statutory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PicksVersionByPeriodEnd(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	before, err := r.For(time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	after, err := r.For(time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "2022.09", before.eis.Version)
	assert.Equal(t, "2024.10", after.eis.Version)

	got, err := before.EIS(dec("10000"), 30)
	require.NoError(t, err)
	assertDec(t, "9.90", got.Employee)
}

func TestRegistry_MissingTable(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.For(time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC))

	var missing *statutory.MissingRateTableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, statutory.KindEPF, missing.Kind)
}

func TestRegistry_Refs(t *testing.T) {
	tables := tables2025(t)
	refs := tables.Refs()
	require.Len(t, refs, 4)
	assert.Equal(t, statutory.KindPCB, refs[3].Kind)
	assert.Equal(t, "YA2025", refs[3].Version)
}

func TestRegistry_OverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	doc := `kind: eis
version: "2024.10"
effective_from: "2024-10-01"
wage_cap: "6000.00"
bands:
  - { from: "0.00", to: "6000.00", step: "100.00" }
age_limit: 55
rates:
  employee: "0.002"
  employer: "0.002"
rounding: "0.05"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eis.yaml"), []byte(doc), 0o600))

	r, err := LoadRegistry(dir)
	require.NoError(t, err)
	tables, err := r.For(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 55, tables.eis.AgeLimit)
	assert.Len(t, r.eis, 3)
}

func TestRegistry_RejectsBadDocuments(t *testing.T) {
	r := &Registry{}

	assert.Error(t, r.Add([]byte("kind: nope\nversion: x\neffective_from: \"2025-01-01\"\n"), "bad-kind"))
	assert.Error(t, r.Add([]byte("kind: pcb\nversion: x\neffective_from: \"not a date\"\nbrackets:\n  - {from: \"0\", rate: \"0\"}\n"), "bad-date"))
	assert.Error(t, r.Add([]byte("kind: socso\nversion: x\neffective_from: \"2025-01-01\"\nwage_cap: \"6000\"\nbands:\n  - {from: \"0\", to: \"5000\", step: \"100\"}\n"), "gap"))
	assert.Error(t, r.Add([]byte("kind: epf\nversion: x\neffective_from: \"2025-01-01\"\nunknown_field: 1\n"), "unknown-field"))
}
