// Package tess implements the TESS two minute cadence light curve collection
// backed by an SQL metadatabase.
package tess

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/neurlang/ramjet/datasets"
	"github.com/neurlang/ramjet/internal/ctxlog"
	"github.com/neurlang/ramjet/lightcurve"
)

// Table is the metadatabase table of TESS two minute cadence light curves.
const Table = "tess_two_minute_cadence_light_curve"

// NumberOfDatasetSplits is the number of dataset splits light curves are spread over.
const NumberOfDatasetSplits = 10

// CreateTable creates the metadata table and its indexes if missing.
func CreateTable(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + Table + ` (
			path TEXT PRIMARY KEY,
			tic_id INTEGER NOT NULL,
			sector INTEGER NOT NULL,
			dataset_split INTEGER NOT NULL,
			random_order_uuid TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + Table + `_split_uuid ON ` + Table + ` (dataset_split, random_order_uuid)`,
		`CREATE INDEX IF NOT EXISTS ` + Table + `_tic_sector ON ` + Table + ` (tic_id, sector)`,
	}
	for _, s := range statements {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return errors.Wrap(err, "create metadata table")
		}
	}
	return nil
}

// IndexDirectory inserts every FITS light curve below directory into the
// metadata table, with a random dataset split and a random order UUID.
// Files whose names carry no TIC id and sector are skipped. Returns the
// number of inserted rows.
func IndexDirectory(ctx context.Context, db *sql.DB, directory string, rng *rand.Rand) (int, error) {
	logger := ctxlog.FromContext(ctx)
	paths, err := datasets.GlobRecursive(ctx, directory, ".fits")
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin indexing transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO `+Table+
		` (path, tic_id, sector, dataset_split, random_order_uuid) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	var inserted int
	for _, path := range paths {
		ticID, sector, err := lightcurve.TicIDAndSectorFromPath(path)
		if err != nil {
			logger.Warn("Skipping light curve without TIC id and sector.", "path", path)
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return inserted, errors.Wrapf(err, "absolute path of %s", path)
		}
		_, err = stmt.ExecContext(ctx, abs, ticID, sector, rng.IntN(NumberOfDatasetSplits), uuid.New().String())
		if err != nil {
			return inserted, errors.Wrapf(err, "insert %s", path)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit indexing transaction")
	}
	logger.Info("Indexed TESS light curves.", "directory", directory, "count", inserted)
	return inserted, nil
}
