package lightcurve

import (
	"math"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"
)

// ReadFeatherColumns reads the named floating point columns of a Feather v2
// (Arrow IPC file) table. Record batches are concatenated; nulls become NaN.
func ReadFeatherColumns(path string, names ...string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open feather file %s", path)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrapf(err, "read feather file %s", path)
	}
	defer r.Close()

	columns := make(map[string][]float64, len(names))
	for _, name := range names {
		if len(r.Schema().FieldIndices(name)) == 0 {
			return nil, errors.Errorf("feather file %s has no column %q", path, name)
		}
		columns[name] = nil
	}

	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, errors.Wrapf(err, "read record batch %d of %s", i, path)
		}
		for _, name := range names {
			index := rec.Schema().FieldIndices(name)[0]
			values, err := floatValues(rec.Column(index))
			if err != nil {
				return nil, errors.Wrapf(err, "column %q of %s", name, path)
			}
			columns[name] = append(columns[name], values...)
		}
	}
	return columns, nil
}

func floatValues(column arrow.Array) ([]float64, error) {
	out := make([]float64, column.Len())
	switch c := column.(type) {
	case *array.Float64:
		for i := range out {
			out[i] = c.Value(i)
		}
	case *array.Float32:
		for i := range out {
			out[i] = float64(c.Value(i))
		}
	case *array.Int64:
		for i := range out {
			out[i] = float64(c.Value(i))
		}
	case *array.Int32:
		for i := range out {
			out[i] = float64(c.Value(i))
		}
	default:
		return nil, errors.Errorf("unsupported column type %s", column.DataType())
	}
	for i := range out {
		if column.IsNull(i) {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// WriteFeatherColumns writes equal length float64 columns, in the order of
// names, as a single record batch Feather v2 file.
func WriteFeatherColumns(path string, names []string, columns map[string][]float64) error {
	mem := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		values, ok := columns[name]
		if !ok {
			return errors.Errorf("no values for column %q", name)
		}
		if len(values) != len(columns[names[0]]) {
			return errors.Errorf("column %q has %d values, expected %d", name, len(values), len(columns[names[0]]))
		}
		fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i, name := range names {
		b.Field(i).(*array.Float64Builder).AppendValues(columns[name], nil)
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create feather file %s", path)
	}
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "create feather writer %s", path)
	}
	if err = w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return errors.Wrapf(err, "write feather file %s", path)
	}
	if err = w.Close(); err != nil {
		f.Close()
		return errors.Wrapf(err, "close feather writer %s", path)
	}
	return f.Close()
}
