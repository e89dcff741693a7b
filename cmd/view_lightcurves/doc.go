// Package main serves the light curves of a directory of TESS FITS files
// over HTTP, preloading the neighbors of the current one so stepping through
// them does not wait on disk.
//
//	view_lightcurves -directory tess/lightcurves -addr :8080
//	curl -X POST localhost:8080/api/next
package main
