package cura

import (
	"compress/lzw"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// paramJSON is the serialized form of one weight matrix.
type paramJSON struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// WriteCompressedWeightsToFile writes model weights to a lzw file
func (n *Network) WriteCompressedWeightsToFile(name string) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	err = n.WriteCompressedWeights(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteCompressedWeights writes model weights to a writer as a lzw
// compressed JSON array, one object per weight matrix.
func (n *Network) WriteCompressedWeights(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)

	_, err := lw.Write([]byte("[\n"))
	if err != nil {
		return err
	}
	for i, p := range n.Params() {
		if i != 0 {
			_, err = lw.Write([]byte(",\n"))
			if err != nil {
				return err
			}
		}
		rows, cols := p.Value.Dims()
		data, err := json.Marshal(paramJSON{Name: p.Name, Rows: rows, Cols: cols, Data: p.Value.RawMatrix().Data})
		if err != nil {
			return errors.Wrapf(err, "marshal %s", p.Name)
		}
		if _, err = lw.Write(data); err != nil {
			return err
		}
	}
	_, err = lw.Write([]byte("]\n"))
	if err != nil {
		return err
	}
	return lw.Close()
}

// ReadCompressedWeightsFromFile reads model weights from a lzw file
func (n *Network) ReadCompressedWeightsFromFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return n.ReadCompressedWeights(file)
}

// ReadCompressedWeights reads model weights written by WriteCompressedWeights.
// Every weight must be present with the shape of the network.
func (n *Network) ReadCompressedWeights(r io.Reader) error {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()

	var stored []paramJSON
	if err := json.NewDecoder(lr).Decode(&stored); err != nil {
		return errors.Wrap(err, "decode weights")
	}
	byName := make(map[string]paramJSON, len(stored))
	for _, p := range stored {
		byName[p.Name] = p
	}
	params := n.Params()
	for _, p := range params {
		s, ok := byName[p.Name]
		if !ok {
			return errors.Errorf("weights have no %s", p.Name)
		}
		rows, cols := p.Value.Dims()
		if s.Rows != rows || s.Cols != cols || len(s.Data) != rows*cols {
			return errors.Errorf("%s is %d×%d in the weights, %d×%d in %s", p.Name, s.Rows, s.Cols, rows, cols, n.Name)
		}
	}
	for _, p := range params {
		s := byName[p.Name]
		rows, cols := p.Value.Dims()
		for r := 0; r < rows; r++ {
			copy(p.Value.RawRowView(r), s.Data[r*cols:(r+1)*cols])
		}
	}
	return nil
}
