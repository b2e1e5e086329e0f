package property

import (
	"slices"
	"strings"
)

type Platform string

var DefaultPlatforms = []Platform{"Airbnb", "Booking.com", "VRBO", "Expedia", "TripAdvisor", "Agoda"}

// Catalog is the ordered set of channels a property can be listed on.
type Catalog struct {
	platforms []Platform
	index     map[string]Platform
}

// NewCatalog trims and de-duplicates names case-insensitively, keeping the
// first spelling. An empty input yields the default catalogue.
func NewCatalog(names []string) Catalog {
	c := Catalog{index: make(map[string]Platform)}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := c.index[key]; dup {
			continue
		}
		c.index[key] = Platform(name)
		c.platforms = append(c.platforms, Platform(name))
	}
	if len(c.platforms) == 0 {
		return DefaultCatalog()
	}
	return c
}

func DefaultCatalog() Catalog {
	names := make([]string, len(DefaultPlatforms))
	for i, p := range DefaultPlatforms {
		names[i] = string(p)
	}
	return NewCatalog(names)
}

func (c Catalog) Platforms() []Platform {
	out := make([]Platform, len(c.platforms))
	copy(out, c.platforms)
	return out
}

// Resolve maps a user supplied name to the catalogue spelling.
func (c Catalog) Resolve(name string) (Platform, bool) {
	p, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func (c Catalog) Contains(p Platform) bool {
	_, ok := c.Resolve(string(p))
	return ok
}

// order sorts a selection by catalogue position so listedOn is stable.
func (c Catalog) order(set map[Platform]struct{}) []Platform {
	out := make([]Platform, 0, len(set))
	for _, p := range c.platforms {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// retain orders the members of set the catalogue still offers and returns
// the rest, sorted by name.
func (c Catalog) retain(set map[Platform]struct{}) (kept, dropped []Platform) {
	for p := range set {
		if !c.Contains(p) {
			dropped = append(dropped, p)
		}
	}
	slices.Sort(dropped)
	return c.order(set), dropped
}
