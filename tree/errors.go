package tree

import (
	"fmt"

	"github.com/spdfg/powerbalancer/bperrors"
)

func errInvalidCap(cap, lo, hi float64) error {
	return bperrors.New(bperrors.InvalidPolicy,
		fmt.Sprintf("power_cap %.3f outside [%.3f, %.3f]", cap, lo, hi))
}

func errAllZero() error {
	return bperrors.New(bperrors.InvalidPolicy, "policy vector is all-zero")
}
