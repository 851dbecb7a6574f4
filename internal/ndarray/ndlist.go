package ndarray

import (
	"errors"
	"fmt"

	"github.com/zachgk/djl/internal/tensor"
)

// NDList is an ordered list of arrays, the unit passed through models.
type NDList []NDArray

// Singleton returns the only element, or an error when the list does not
// hold exactly one array.
func (l NDList) Singleton() (NDArray, error) {
	if len(l) != 1 {
		return nil, fmt.Errorf("expected a single array, list holds %d", len(l))
	}
	return l[0], nil
}

// Get returns the first array with the given name.
func (l NDList) Get(name string) (NDArray, bool) {
	for _, a := range l {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Shapes lists the shape of every element.
func (l NDList) Shapes() []tensor.Shape {
	shapes := make([]tensor.Shape, len(l))
	for i, a := range l {
		shapes[i] = a.Shape()
	}
	return shapes
}

// Attach moves every array under m.
func (l NDList) Attach(m Manager) error {
	for _, a := range l {
		if err := a.Attach(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every array and joins the failures.
func (l NDList) Close() error {
	var errs []error
	for _, a := range l {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
