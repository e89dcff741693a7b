// Package main indexes a directory of TESS two minute cadence FITS files into
// the metadatabase of a configuration, giving each light curve a random
// dataset split and a random order.
//
//	index_tess -config ramjet.hcl -directory tess/lightcurves
package main
