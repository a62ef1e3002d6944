package postgres

import (
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates document IDs that sort by creation time.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate returns a new ULID string. IDs made in the same millisecond stay
// monotonic, which keeps AfterID paging stable.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
