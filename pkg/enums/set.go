package enums

import (
	"fmt"
	"slices"
)

// parse returns the member of values spelled exactly like raw.
func parse[T ~string](kind string, values []T, raw string) (T, error) {
	if i := slices.Index(values, T(raw)); i >= 0 {
		return values[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
