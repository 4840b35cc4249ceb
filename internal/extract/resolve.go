package extract

import (
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/kicad"
)

var (
	// /en/products/detail/<manufacturer>/<part>/<distributor number>
	distributorDetail = regexp.MustCompile(`/detail/([^/]+)/([^/]+)/\d+`)
	// /parts/<part>/<manufacturer>/view-part
	snapEDAPartPage = regexp.MustCompile(`/parts/([^/]+)/([^/]+)/view-part`)
)

// resolver is one step of a part identifier chain. It returns "" when it has nothing.
type resolver func(*resolveContext) string

// resolveContext carries the bundle plus lazily parsed file contents shared by the resolvers.
type resolveContext struct {
	b *component.Bundle

	symParsed bool
	symbol    *kicad.Symbol
	legacy    []string
}

func newResolveContext(b *component.Bundle) *resolveContext {
	return &resolveContext{b: b}
}

// resolvePartID returns the first non-empty, non-UUID result of chain, or UnknownID.
func resolvePartID(c *resolveContext, chain ...resolver) string {
	for _, r := range chain {
		id := strings.TrimSpace(r(c))
		if id != "" && !component.LooksLikeUUID(id) {
			return id
		}
	}
	return component.UnknownID
}

// loadSymbol parses the bundle's symbol file once. Parse failures leave both fields empty.
func (c *resolveContext) loadSymbol() {
	if c.symParsed {
		return
	}
	c.symParsed = true
	if c.b.SymbolPath == "" {
		return
	}
	data, err := os.ReadFile(c.b.SymbolPath)
	if err != nil {
		return
	}
	if c.b.SymbolFormat == component.FormatLegacy {
		c.legacy = kicad.LegacySymbolNames(data)
		return
	}
	lib, err := kicad.ParseSymbolLib(data)
	if err != nil {
		return
	}
	for _, s := range lib.Symbols() {
		if kicad.IsUnitName(s.Name()) || component.LooksLikeUUID(s.Name()) {
			continue
		}
		c.symbol = s
		return
	}
}

// symbolEntryName reads the first top-level symbol name from the symbol file,
// skipping sub-unit and UUID-shaped entries.
func symbolEntryName(c *resolveContext) string {
	c.loadSymbol()
	if c.symbol != nil {
		return c.symbol.Name()
	}
	for _, name := range c.legacy {
		if !component.LooksLikeUUID(name) {
			return name
		}
	}
	return ""
}

// symbolProperty returns the first non-empty value among keys on the resolved symbol.
func (c *resolveContext) symbolProperty(keys ...string) string {
	c.loadSymbol()
	if c.symbol == nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := c.symbol.Property(k); ok && strings.TrimSpace(v) != "" && v != "~" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// footprintEntryName reads the footprint name from the canonical footprint file.
func footprintEntryName(c *resolveContext) string {
	if c.b.FootprintPath == "" {
		return ""
	}
	fp, err := kicad.LoadFootprint(c.b.FootprintPath)
	if err != nil {
		return ""
	}
	return fp.Name()
}

func symbolFileStem(c *resolveContext) string    { return stem(c.b.SymbolPath) }
func footprintFileStem(c *resolveContext) string { return stem(c.b.FootprintPath) }

// distributorPartID parses a distributor product-detail URL, referrer first.
func distributorPartID(c *resolveContext) string {
	part, _ := matchURL(distributorDetail, 2, 1, c.b.ReferrerURL, c.b.SourceURL)
	return part
}

// snapEDAPartID parses a SnapEDA part-page URL, referrer first.
func snapEDAPartID(c *resolveContext) string {
	part, _ := matchURL(snapEDAPartPage, 1, 2, c.b.ReferrerURL, c.b.SourceURL)
	return part
}

// sourceURLSegment returns the last path segment of the source URL without a .zip suffix.
func sourceURLSegment(c *resolveContext) string {
	if c.b.SourceURL == "" {
		return ""
	}
	u, err := url.Parse(c.b.SourceURL)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	seg := path.Base(p)
	if strings.EqualFold(path.Ext(seg), ".zip") {
		seg = strings.TrimSuffix(seg, path.Ext(seg))
	}
	return seg
}

// matchURL percent-decodes each URL and returns the part and manufacturer groups
// of the first one that matches re.
func matchURL(re *regexp.Regexp, partGroup, mfrGroup int, urls ...string) (part, mfr string) {
	for _, raw := range urls {
		if raw == "" {
			continue
		}
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			decoded = raw
		}
		if m := re.FindStringSubmatch(decoded); m != nil {
			return m[partGroup], m[mfrGroup]
		}
	}
	return "", ""
}

// enrich fills manufacturer and description from URLs and symbol properties.
func enrich(b *component.Bundle) {
	c := newResolveContext(b)
	if b.Manufacturer == "" {
		if _, mfr := matchURL(distributorDetail, 2, 1, b.ReferrerURL, b.SourceURL); mfr != "" {
			b.Manufacturer = mfr
		} else if _, mfr := matchURL(snapEDAPartPage, 1, 2, b.ReferrerURL, b.SourceURL); mfr != "" {
			b.Manufacturer = mfr
		} else {
			b.Manufacturer = c.symbolProperty("Manufacturer", "MF", "Manufacturer_Name")
		}
	}
	if b.Description == "" {
		b.Description = c.symbolProperty("Description", "ki_description")
	}
}
