package tess

import (
	"database/sql"
	"strings"

	"github.com/neurlang/ramjet/datasets"
	"github.com/neurlang/ramjet/lightcurve"
)

// Collection is the set of TESS two minute cadence light curves in the given
// dataset splits. Every pass starts at a random UUID.
type Collection struct {
	datasets.SQLMetadataCollection
	DatasetSplits []int
}

// NewCollection creates a collection over the metadata table in db.
func NewCollection(db *sql.DB, label float64, splits []int) *Collection {
	c := &Collection{DatasetSplits: splits}
	c.DB = db
	c.CollectionLabel = label
	c.Query = c.buildQuery
	return c
}

func (c *Collection) buildQuery() (datasets.Query, error) {
	q := datasets.Query{SQL: `SELECT path FROM ` + Table}
	if len(c.DatasetSplits) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(c.DatasetSplits)), ", ")
		q.SQL += ` WHERE dataset_split IN (` + placeholders + `)`
		for _, s := range c.DatasetSplits {
			q.Args = append(q.Args, s)
		}
	}
	return datasets.OrderByUUIDWithRandomStart(q, "random_order_uuid"), nil
}

// LoadTimesAndFluxes loads the BTJD times and PDCSAP fluxes of a light curve.
func (c *Collection) LoadTimesAndFluxes(path string) ([]float64, []float64, error) {
	l, err := lightcurve.TessFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	return l.Times, l.Fluxes, nil
}
