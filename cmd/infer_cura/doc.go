// Package main ranks the inference collections of a database configuration
// with a trained Cura network and writes the confidences as CSV, highest
// confidence first.
//
//	infer_cura -config ramjet.hcl -model cura -weights cura.json.lzw -out results.csv
package main
