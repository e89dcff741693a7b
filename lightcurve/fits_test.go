package lightcurve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFits writes a primary HDU followed by the given extensions.
func writeFits(t *testing.T, path string, extensions ...fitsio.HDU) {
	t.Helper()
	w, err := os.Create(path)
	require.NoError(t, err)
	defer w.Close()

	f, err := fitsio.Create(w)
	require.NoError(t, err)
	defer f.Close()

	primary, err := fitsio.NewPrimaryHDU(nil)
	require.NoError(t, err)
	require.NoError(t, f.Write(primary))
	for _, hdu := range extensions {
		require.NoError(t, f.Write(hdu))
	}
}

func lightCurveTable(t *testing.T, rows []tessRow) *fitsio.Table {
	t.Helper()
	table, err := fitsio.NewTable("LIGHTCURVE", []fitsio.Column{
		{Name: "TIME", Format: "D"},
		{Name: "PDCSAP_FLUX", Format: "E"},
		{Name: "SAP_FLUX", Format: "E"},
		{Name: "PDCSAP_FLUX_ERR", Format: "E"},
		{Name: "SAP_FLUX_ERR", Format: "E"},
	}, fitsio.BINARY_TBL)
	require.NoError(t, err)
	for i := range rows {
		require.NoError(t, table.Write(&rows[i]))
	}
	return table
}

func TestTessFromPathReadsFits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TIC 169480782 sector 5.fits")
	table := lightCurveTable(t, []tessRow{
		{Time: 0, PDCSAPFlux: 10, SAPFlux: 20, PDCSAPFluxError: 0.5, SAPFluxError: 1},
		{Time: 1, PDCSAPFlux: 11, SAPFlux: 21, PDCSAPFluxError: 0.5, SAPFluxError: 1},
		{Time: 2, PDCSAPFlux: 12, SAPFlux: 22, PDCSAPFluxError: 0.5, SAPFluxError: 1},
	})
	defer table.Close()
	writeFits(t, path, table)

	l, err := TessFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, l.Times)
	assert.Equal(t, []float64{10, 11, 12}, l.Fluxes)
	assert.Equal(t, []float64{20, 21, 22}, l.Columns[SAPFlux])
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, l.Columns[PDCSAPFluxError])
	assert.Equal(t, 169480782, l.TicID)
	assert.Equal(t, 5, l.Sector)
}

func TestTessFromPathWithoutExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TIC 1 sector 2.fits")
	writeFits(t, path)

	_, err := TessFromPath(path)
	assert.ErrorContains(t, err, "no light curve extension")
}

func TestTessFromPathExtensionIsNotATable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TIC 1 sector 2.fits")
	image := fitsio.NewImage(8, []int{2})
	defer image.Close()
	require.NoError(t, image.Write([]byte{1, 2}))
	writeFits(t, path, image)

	_, err := TessFromPath(path)
	assert.ErrorContains(t, err, "is not a table")
}
