package lightcurve

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
)

// ErrUnknownFileNamePattern is returned when a TIC id and sector can't be parsed from a file name.
var ErrUnknownFileNamePattern = errors.New("no TIC id and sector pattern in file name")

// ColumnName names a column of a TESS two minute cadence light curve.
type ColumnName string

const (
	TimeBTJD        ColumnName = "time__btjd"
	PDCSAPFlux      ColumnName = "pdcsap_flux"
	SAPFlux         ColumnName = "sap_flux"
	PDCSAPFluxError ColumnName = "pdcsap_flux_error"
	SAPFluxError    ColumnName = "sap_flux_error"
)

// ColumnNames lists every ColumnName.
var ColumnNames = []ColumnName{TimeBTJD, PDCSAPFlux, SAPFlux, PDCSAPFluxError, SAPFluxError}

// MastFitsIndex maps each column to its name in the MAST light curve FITS table.
var MastFitsIndex = map[ColumnName]string{
	TimeBTJD:        "TIME",
	PDCSAPFlux:      "PDCSAP_FLUX",
	SAPFlux:         "SAP_FLUX",
	PDCSAPFluxError: "PDCSAP_FLUX_ERR",
	SAPFluxError:    "SAP_FLUX_ERR",
}

// TessTwoMinuteCadenceLightCurve is a TESS two minute cadence light curve from MAST.
// Times default to TIME and Fluxes to PDCSAP_FLUX.
type TessTwoMinuteCadenceLightCurve struct {
	LightCurve
	Columns map[ColumnName][]float64
	TicID   int
	Sector  int
}

// MastArchive fetches TESS light curve files and returns a local path.
type MastArchive interface {
	DownloadTwoMinuteCadenceLightCurve(ctx context.Context, ticID, sector int) (string, error)
}

var (
	humanReadablePattern = regexp.MustCompile(`TIC (\d+) sector (\d+)`)
	obsIDPattern         = regexp.MustCompile(`tess\d+-s(\d+)-(\d+)-\d+-s`)
)

// TicIDAndSectorFromPath parses the TIC id and sector from a file path.
// Both "TIC 289890301 sector 15 ..." and TESS observation id style
// "tess2019006130736-s0007-0000000278956474-0131-s_lc.fits" names are accepted.
func TicIDAndSectorFromPath(path string) (ticID, sector int, err error) {
	name := filepath.Base(path)
	if m := humanReadablePattern.FindStringSubmatch(name); m != nil {
		ticID, _ = strconv.Atoi(m[1])
		sector, _ = strconv.Atoi(m[2])
		return ticID, sector, nil
	}
	if m := obsIDPattern.FindStringSubmatch(name); m != nil {
		sector, _ = strconv.Atoi(m[1])
		ticID, _ = strconv.Atoi(m[2])
		return ticID, sector, nil
	}
	return 0, 0, errors.Wrapf(ErrUnknownFileNamePattern, "%q", path)
}

// TessFromPath loads a TESS two minute cadence light curve from a MAST FITS file.
func TessFromPath(path string) (*TessTwoMinuteCadenceLightCurve, error) {
	columns, err := readFitsColumns(path)
	if err != nil {
		return nil, err
	}
	return tessFromColumns(path, columns)
}

// TessFromMast downloads the light curve through archive and loads it with TessFromPath.
func TessFromMast(ctx context.Context, archive MastArchive, ticID, sector int) (*TessTwoMinuteCadenceLightCurve, error) {
	path, err := archive.DownloadTwoMinuteCadenceLightCurve(ctx, ticID, sector)
	if err != nil {
		return nil, errors.Wrapf(err, "download TIC %d sector %d", ticID, sector)
	}
	return TessFromPath(path)
}

func tessFromColumns(path string, fitsColumns map[string][]float64) (*TessTwoMinuteCadenceLightCurve, error) {
	ticID, sector, err := TicIDAndSectorFromPath(path)
	if err != nil {
		return nil, err
	}
	l := &TessTwoMinuteCadenceLightCurve{
		Columns: make(map[ColumnName][]float64, len(ColumnNames)),
		TicID:   ticID,
		Sector:  sector,
	}
	for _, column := range ColumnNames {
		values, ok := fitsColumns[MastFitsIndex[column]]
		if !ok {
			return nil, errors.Errorf("%s: missing FITS column %s", path, MastFitsIndex[column])
		}
		l.Columns[column] = values
	}
	l.Times = l.Columns[TimeBTJD]
	l.Fluxes = l.Columns[PDCSAPFlux]
	return l, nil
}

// tessRow is one row of the light curve table; TIME is stored as double,
// fluxes as single precision.
type tessRow struct {
	Time            float64 `fits:"TIME"`
	PDCSAPFlux      float32 `fits:"PDCSAP_FLUX"`
	SAPFlux         float32 `fits:"SAP_FLUX"`
	PDCSAPFluxError float32 `fits:"PDCSAP_FLUX_ERR"`
	SAPFluxError    float32 `fits:"SAP_FLUX_ERR"`
}

func readFitsColumns(path string) (map[string][]float64, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open FITS file %s", path)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read FITS file %s", path)
	}
	defer f.Close()

	// light curve table is the first extension
	if len(f.HDUs()) < 2 {
		return nil, errors.Errorf("%s: no light curve extension", path)
	}
	table, ok := f.HDU(1).(*fitsio.Table)
	if !ok {
		return nil, errors.Errorf("%s: extension 1 is not a table", path)
	}

	rows, err := table.Read(0, table.NumRows())
	if err != nil {
		return nil, errors.Wrapf(err, "read light curve table of %s", path)
	}
	defer rows.Close()

	n := int(table.NumRows())
	columns := make(map[string][]float64, len(MastFitsIndex))
	for _, name := range MastFitsIndex {
		columns[name] = make([]float64, 0, n)
	}
	for rows.Next() {
		var row tessRow
		if err := rows.Scan(&row); err != nil {
			return nil, errors.Wrapf(err, "scan light curve row of %s", path)
		}
		columns["TIME"] = append(columns["TIME"], row.Time)
		columns["PDCSAP_FLUX"] = append(columns["PDCSAP_FLUX"], float64(row.PDCSAPFlux))
		columns["SAP_FLUX"] = append(columns["SAP_FLUX"], float64(row.SAPFlux))
		columns["PDCSAP_FLUX_ERR"] = append(columns["PDCSAP_FLUX_ERR"], float64(row.PDCSAPFluxError))
		columns["SAP_FLUX_ERR"] = append(columns["SAP_FLUX_ERR"], float64(row.SAPFluxError))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate light curve rows of %s", path)
	}
	return columns, nil
}

// LocalMastArchive serves MAST downloads from a directory mirror of TESS light curve files.
type LocalMastArchive struct {
	Directory string
}

// DownloadTwoMinuteCadenceLightCurve finds the mirrored file for the TIC id and sector.
func (a LocalMastArchive) DownloadTwoMinuteCadenceLightCurve(ctx context.Context, ticID, sector int) (string, error) {
	matches, err := filepath.Glob(filepath.Join(a.Directory, "*.fits"))
	if err != nil {
		return "", errors.Wrap(err, "list mirror")
	}
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id, s, err := TicIDAndSectorFromPath(match)
		if err != nil {
			continue
		}
		if id == ticID && s == sector {
			return match, nil
		}
	}
	return "", errors.Errorf("TIC %d sector %d not in %s", ticID, sector, a.Directory)
}
