package engine

import "listingbot/internal/domain"

// Catalog tracks every symbol a broker has ever reported during this run
// and diffs successive listings to surface newly listed instruments exactly
// once. The seen set only grows.
//
// Catalog performs no I/O. The cycle fetches the instrument list itself and
// only hands it to Discover on success, so a failed fetch can never mutate
// the seen set or masquerade as "no new listings".
type Catalog struct {
	seen map[string]struct{}
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{seen: make(map[string]struct{})}
}

// Bootstrap marks every instrument in the initial listing as seen. These
// are pre-existing listings, not new ones.
func (c *Catalog) Bootstrap(instruments []domain.Instrument) {
	for _, inst := range instruments {
		c.seen[inst.Symbol] = struct{}{}
	}
}

// Discover returns the instruments in current whose symbols have not been
// seen before, in feed order, and marks them seen immediately so a symbol
// is reported at most once per run even if a later processing step fails.
func (c *Catalog) Discover(current []domain.Instrument) []domain.Instrument {
	var fresh []domain.Instrument
	for _, inst := range current {
		if _, ok := c.seen[inst.Symbol]; ok {
			continue
		}
		c.seen[inst.Symbol] = struct{}{}
		fresh = append(fresh, inst)
	}
	return fresh
}

// Size returns the number of symbols seen so far.
func (c *Catalog) Size() int {
	return len(c.seen)
}
