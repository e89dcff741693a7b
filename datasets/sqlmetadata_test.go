package datasets

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE light_curve (path TEXT, dataset_split INTEGER, random_order_uuid TEXT)`)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		_, err = db.Exec(`INSERT INTO light_curve VALUES (?, ?, ?)`,
			fmt.Sprintf("curve%02d.fits", i), i%5, uuid.New().String())
		require.NoError(t, err)
	}
	return db
}

// isRotation reports whether got is sorted once split at its single descent.
func isRotation(got []string) bool {
	descents := 0
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			descents++
		}
	}
	return descents <= 1
}

func TestSQLMetadataCollectionPathsAndCount(t *testing.T) {
	db := openTestDB(t)
	c := &SQLMetadataCollection{
		DB:              db,
		CollectionLabel: 1,
		Query: func() (Query, error) {
			return Query{SQL: `SELECT path FROM light_curve WHERE dataset_split IN (?, ?)`, Args: []any{0, 1}}, nil
		},
	}
	ctx := context.Background()

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	paths, err := c.Paths(ctx)
	require.NoError(t, err)
	assert.Len(t, paths, 8)
}

func TestSQLMetadataCollectionCustomScan(t *testing.T) {
	db := openTestDB(t)
	c := &SQLMetadataCollection{
		DB: db,
		Query: func() (Query, error) {
			return Query{SQL: `SELECT path, dataset_split FROM light_curve WHERE dataset_split = 2`}, nil
		},
		ScanPath: func(rows *sql.Rows) (string, error) {
			var path string
			var split int
			err := rows.Scan(&path, &split)
			return fmt.Sprintf("/data/%d/%s", split, path), err
		},
	}
	paths, err := c.Paths(context.Background())
	require.NoError(t, err)
	require.Len(t, paths, 4)
	for _, p := range paths {
		assert.Contains(t, p, "/data/2/")
	}
}

func TestOrderByUUIDWithRandomStartIncludesEveryRow(t *testing.T) {
	db := openTestDB(t)
	c := &SQLMetadataCollection{
		DB: db,
		Query: func() (Query, error) {
			q := OrderByUUIDWithRandomStart(Query{SQL: `SELECT random_order_uuid FROM light_curve`}, "random_order_uuid")
			return q, nil
		},
	}
	for pass := 0; pass < 5; pass++ {
		uuids, err := c.Paths(context.Background())
		require.NoError(t, err)
		require.Len(t, uuids, 20)
		assert.True(t, isRotation(uuids), "pass %d: %v", pass, uuids)
	}
}

func TestOrderByDatasetSplitWithRandomStart(t *testing.T) {
	db := openTestDB(t)
	rng := rand.New(rand.NewPCG(1, 2))
	for pass := 0; pass < 5; pass++ {
		q := OrderByDatasetSplitWithRandomStart(Query{SQL: `SELECT dataset_split FROM light_curve`}, "dataset_split", []int{2, 3}, rng)
		rows, err := db.Query(q.SQL, q.Args...)
		require.NoError(t, err)
		var splits []int
		for rows.Next() {
			var s int
			require.NoError(t, rows.Scan(&s))
			splits = append(splits, s)
		}
		require.NoError(t, rows.Close())

		require.Len(t, splits, 20)
		assert.Contains(t, []int{2, 3}, splits[0])
		sorted := append([]int(nil), splits...)
		sort.Ints(sorted)
		assert.NotEqual(t, splits[0], 0)
		assert.Equal(t, sorted[0], 0)
	}
}
