package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicksale/backend/internal/app"
	"quicksale/backend/internal/config"
	"quicksale/backend/internal/domain"
)

func memoryApp(t *testing.T) (opener, *app.App) {
	t.Helper()
	cfg := config.Config{StoreBackend: config.BackendMemory, BackupSink: config.SinkNone, SeedProducts: true}
	a, err := app.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	return func(context.Context) (*app.App, error) { return a, nil }, a
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newCLI(open, &out).Run(append([]string{"posctl"}, args...))
	return out.String(), err
}

func TestProductsExportThenReplaceImport(t *testing.T) {
	open, a := memoryApp(t)
	path := filepath.Join(t.TempDir(), "products.json")

	_, err := run(t, open, "products", "export", "--out", path)
	require.NoError(t, err)

	out, err := run(t, open, "products", "import", "--file", path, "--replace")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Len(t, a.Service.ListProducts(), 9)

	out, err = run(t, open, "products", "import", "--file", path, "--replace", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 9 product(s)")
	assert.Len(t, a.Service.ListProducts(), 9)
}

func TestImportWithoutFileIsNotPerformed(t *testing.T) {
	open, a := memoryApp(t)

	_, err := run(t, open, "reports", "import", "--yes")
	assert.ErrorIs(t, err, domain.ErrCancelled)

	n, ok := a.Notifications.Last()
	require.True(t, ok)
	assert.Equal(t, domain.SeverityWarning, n.Severity)
}

func TestReportsExportImportAndList(t *testing.T) {
	open, a := memoryApp(t)
	saved, err := a.Service.SaveReport(context.Background(), domain.Report{Date: "2024-01-01", Type: domain.ReportTypeDaily})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	_, err = run(t, open, "reports", "export", "--id", saved.ReportID, "--out", path)
	require.NoError(t, err)

	out, err := run(t, open, "reports", "import", "--file", path, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "already present")

	out, err = run(t, open, "reports", "list")
	require.NoError(t, err)
	assert.Contains(t, out, saved.ReportID)
	assert.Contains(t, out, "2024-01-01")
}
