package gradient

import "fmt"

// DimensionMismatchError reports a parameter vector whose length does not
// match the circuit's parameter count.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("parameter vector has %d entries, circuit expects %d", e.Got, e.Want)
}

// InvalidArgumentError reports an estimator argument that fails
// validation before any oracle call is made.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}
