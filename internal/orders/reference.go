package orders

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var ErrMalformedReference = errors.New("malformed external reference")

var refPattern = regexp.MustCompile(`^ORDER-([0-9]+)$`)

// ExternalRef correlates a gateway invoice back to an order.
func ExternalRef(orderID int64) string {
	return fmt.Sprintf("ORDER-%d", orderID)
}

// ParseExternalRef accepts only the literal shape ORDER-<integer> and only in
// the form ExternalRef produces, so every order has exactly one reference
// (ORDER-042 is not ORDER-42).
func ParseExternalRef(ref string) (int64, error) {
	m := refPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 || ExternalRef(id) != ref {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	return id, nil
}
