// Package main streams batches from a database configuration and logs what
// comes out of them, to check collections and preprocessing before training.
// With -model it also evaluates a Cura network on the validation stream and
// saves its weights.
//
//	sample_database -config ramjet.hcl -batches 20 -pgo
//	sample_database -config ramjet.hcl -model cura -dstmodel cura.json.lzw -resume
package main
