package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/walle/internal/models"
	"github.com/xhad/walle/pkg/loader"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rates.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVLoader_Load(t *testing.T) {
	path := writeCSV(t, `Date,Year,USD_Value,INR_Rate,Daily_Change
01-01-2020,2020,1,70.0,0.0
02-01-2020,2020,1,70.5,0.5
03-01-2020,2020,1,71.0,0.5
`)

	records, err := loader.NewCSV(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Source row order is preserved
	assert.Equal(t, 0, records[0].Row)
	assert.Equal(t, "01-01-2020", records[0].Date)
	assert.Equal(t, 2, records[2].Row)
	assert.Equal(t, "03-01-2020", records[2].Date)
	assert.Equal(t, "71.0", records[2].INRRate)
	assert.Equal(t, "0.5", records[2].DailyChange)
}

func TestCSVLoader_ColumnOrderIndependent(t *testing.T) {
	path := writeCSV(t, `INR_Rate,Date,Daily_Change,Year,USD_Value
82.5,15-06-2023,0.12,2023,1
`)

	records, err := loader.NewCSV(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "15-06-2023", records[0].Date)
	assert.Equal(t, "82.5", records[0].INRRate)
	assert.Equal(t, "2023", records[0].Year)
}

func TestCSVLoader_MissingFile(t *testing.T) {
	_, err := loader.NewCSV(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())

	var srcErr *models.DataSourceError
	require.True(t, errors.As(err, &srcErr))
}

func TestCSVLoader_MissingColumn(t *testing.T) {
	path := writeCSV(t, `Date,Year,USD_Value,Daily_Change
01-01-2020,2020,1,0.0
`)

	_, err := loader.NewCSV(path).Load(context.Background())

	var srcErr *models.DataSourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Contains(t, err.Error(), "INR_Rate")
}

func TestCSVLoader_MalformedRows(t *testing.T) {
	path := writeCSV(t, `Date,Year,USD_Value,INR_Rate,Daily_Change
01-01-2020,2020,1
`)

	_, err := loader.NewCSV(path).Load(context.Background())

	var srcErr *models.DataSourceError
	require.True(t, errors.As(err, &srcErr))
}

func TestCSVLoader_EmptyFile(t *testing.T) {
	path := writeCSV(t, "")

	_, err := loader.NewCSV(path).Load(context.Background())

	var srcErr *models.DataSourceError
	require.True(t, errors.As(err, &srcErr))
}
