// Package evaluate measures networks on labeled batch streams and keeps the
// best weights seen so far.
package evaluate
