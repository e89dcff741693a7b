package datasets

import (
	"context"
	"database/sql"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Query is an SQL statement with its positional arguments.
type Query struct {
	SQL  string
	Args []any
}

// SQLMetadataCollection is a collection whose light curve metadata lives in an SQL database.
type SQLMetadataCollection struct {
	DB              *sql.DB
	CollectionLabel float64

	// Query builds the query selecting the collection rows. It is called once
	// per pass, so random orderings are drawn again every pass.
	Query func() (Query, error)

	// ScanPath turns the current row into a light curve path. When nil the
	// query must select exactly one column holding the path.
	ScanPath func(rows *sql.Rows) (string, error)
}

// Label implements Collection.
func (c *SQLMetadataCollection) Label() float64 {
	return c.CollectionLabel
}

func (c *SQLMetadataCollection) query() (Query, error) {
	if c.Query == nil {
		return Query{}, errors.Wrap(ErrMethodNotImplemented, "no SQL query")
	}
	return c.Query()
}

// Count returns the number of rows returned by the query.
func (c *SQLMetadataCollection) Count(ctx context.Context) (int, error) {
	q, err := c.query()
	if err != nil {
		return 0, err
	}
	var n int
	err = c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+q.SQL+") AS counted", q.Args...).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count collection rows")
	}
	return n, nil
}

// Paths runs the query and returns the path of every row.
func (c *SQLMetadataCollection) Paths(ctx context.Context) ([]string, error) {
	q, err := c.query()
	if err != nil {
		return nil, err
	}
	rows, err := c.DB.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, errors.Wrap(err, "query collection rows")
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if c.ScanPath != nil {
			path, err = c.ScanPath(rows)
		} else {
			err = rows.Scan(&path)
		}
		if err != nil {
			return nil, errors.Wrap(err, "scan collection row")
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate collection rows")
	}
	return paths, nil
}

// OrderByUUIDWithRandomStart orders the query by a UUID column, starting at a
// random UUID and wrapping around to the smallest one so every row is included.
// The column must hold canonical lowercase UUID strings.
func OrderByUUIDWithRandomStart(q Query, column string) Query {
	start := uuid.New().String()
	return Query{
		SQL:  q.SQL + " ORDER BY CASE WHEN " + column + " > ? THEN 0 ELSE 1 END, " + column,
		Args: append(append([]any(nil), q.Args...), start),
	}
}

// OrderByDatasetSplitWithRandomStart orders the query by a dataset split
// column, starting at a split drawn from available and wrapping around to the
// smallest split.
func OrderByDatasetSplitWithRandomStart(q Query, column string, available []int, rng *rand.Rand) Query {
	start := 0
	if len(available) > 0 {
		start = available[rng.IntN(len(available))]
	}
	return Query{
		SQL:  q.SQL + " ORDER BY CASE WHEN " + column + " >= ? THEN 0 ELSE 1 END, " + column,
		Args: append(append([]any(nil), q.Args...), start),
	}
}
