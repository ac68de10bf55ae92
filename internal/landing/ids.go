package landing

import (
	"math/rand"
	"strconv"

	"github.com/google/uuid"
)

// IDSource mints identifiers for new landings and products.
type IDSource interface {
	LandingID(documentNumber string) string
	ProductID(documentNumber string) string
}

// RandomIDs is the production IDSource: landings get a random 10-digit
// suffix, products a UUID.
type RandomIDs struct{}

func (RandomIDs) LandingID(documentNumber string) string {
	return documentNumber + "-" + strconv.FormatInt(random10Digit(), 10)
}

func (RandomIDs) ProductID(documentNumber string) string {
	return documentNumber + "-" + uuid.NewString()
}

// random10Digit returns a number in [1e9, 1e10).
func random10Digit() int64 {
	const lo, hi = 1_000_000_000, 10_000_000_000
	return lo + rand.Int63n(hi-lo)
}
