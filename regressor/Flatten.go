package regressor

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// FlattenTensors concatenates the values of tensors, each in row major
// order, into a single slice. Only float64 and float32 tensors can be
// flattened.
func FlattenTensors(values []tensor.Tensor) ([]float64, error) {
	size := 0
	for _, v := range values {
		size += v.Shape().TotalSize()
	}

	flat := make([]float64, 0, size)
	for i, v := range values {
		switch data := v.Data().(type) {
		case []float64:
			flat = append(flat, data...)
		case []float32:
			for _, x := range data {
				flat = append(flat, float64(x))
			}
		case float64:
			flat = append(flat, data)
		case float32:
			flat = append(flat, float64(data))
		default:
			return nil, errors.Errorf("flatten: tensor %v has unsupported "+
				"dtype %v", i, v.Dtype())
		}
	}
	return flat, nil
}

// UnflattenTensors splits flat into consecutive float64 tensors with
// the given shapes. The number of elements in flat must equal the
// total size of all shapes.
func UnflattenTensors(flat []float64, shapes []tensor.Shape) ([]*tensor.Dense,
	error) {
	total := 0
	for _, s := range shapes {
		total += s.TotalSize()
	}
	if total != len(flat) {
		return nil, errors.Errorf("unflatten: expected %v values for shapes "+
			"%v but got %v", total, shapes, len(flat))
	}

	out := make([]*tensor.Dense, len(shapes))
	start := 0
	for i, s := range shapes {
		end := start + s.TotalSize()
		backing := make([]float64, end-start)
		copy(backing, flat[start:end])

		out[i] = tensor.New(tensor.WithShape(s.Clone()...),
			tensor.WithBacking(backing))
		start = end
	}
	return out, nil
}
