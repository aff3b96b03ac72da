// Package floatutils provides utilities for working with floats
package floatutils

import "gonum.org/v1/gonum/floats"

// ArgMax returns the first index of the maximum value in each row of
// a row major matrix with the given number of columns.
func ArgMax(values []float64, cols int) []int {
	rows := len(values) / cols
	out := make([]int, rows)
	for r := 0; r < rows; r++ {
		out[r] = floats.MaxIdx(values[r*cols : (r+1)*cols])
	}
	return out
}
