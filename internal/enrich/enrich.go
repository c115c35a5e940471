// Package enrich attaches geolocation and network-ownership data to
// IP-bearing document fields.
package enrich

import (
	"fmt"
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"

	"github.com/telhawk-systems/telhawk-loader/internal/metrics"
)

// Enricher looks up derived data for an IP address. Lookups are in-memory
// and safe for concurrent use. A miss is not an error; implementations
// return ok=false.
type Enricher interface {
	// City returns a geo fragment for the address:
	// city_name, country_iso_code, country_name, location{lon,lat}.
	City(ip string) (map[string]any, bool)

	// ASN returns an autonomous-system fragment for the address:
	// number, organization{name}.
	ASN(ip string) (map[string]any, bool)
}

// Noop is the typed "no enrichment" mode used when no databases are
// configured. Every lookup misses.
type Noop struct{}

func (Noop) City(string) (map[string]any, bool) { return nil, false }
func (Noop) ASN(string) (map[string]any, bool)  { return nil, false }

// GeoIP resolves addresses against MaxMind City and ASN databases.
// Either database may be absent; the corresponding lookups then miss.
type GeoIP struct {
	city *geoip2.Reader
	asn  *geoip2.Reader
}

// Open loads the databases at the given paths. A missing file is a
// degraded mode, not a failure; an unreadable or corrupt file is an error.
func Open(cityPath, asnPath string) (*GeoIP, error) {
	g := &GeoIP{}
	var err error
	if g.city, err = openIfPresent(cityPath); err != nil {
		return nil, fmt.Errorf("opening city database: %w", err)
	}
	if g.asn, err = openIfPresent(asnPath); err != nil {
		g.Close()
		return nil, fmt.Errorf("opening asn database: %w", err)
	}
	return g, nil
}

func openIfPresent(path string) (*geoip2.Reader, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return geoip2.Open(path)
}

// Close releases the database handles.
func (g *GeoIP) Close() {
	if g.city != nil {
		g.city.Close()
	}
	if g.asn != nil {
		g.asn.Close()
	}
}

// Degraded reports whether no database could be opened at all.
func (g *GeoIP) Degraded() bool {
	return g.city == nil && g.asn == nil
}

// City implements Enricher.
func (g *GeoIP) City(ip string) (map[string]any, bool) {
	if g.city == nil {
		return nil, false
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil, false
	}
	rec, err := g.city.City(addr)
	if err != nil || rec == nil || rec.Country.IsoCode == "" {
		return nil, false
	}
	metrics.EnrichmentHits.WithLabelValues("city").Inc()
	return map[string]any{
		"city_name":        rec.City.Names["en"],
		"country_iso_code": rec.Country.IsoCode,
		"country_name":     rec.Country.Names["en"],
		"location": map[string]any{
			"lon": rec.Location.Longitude,
			"lat": rec.Location.Latitude,
		},
	}, true
}

// ASN implements Enricher.
func (g *GeoIP) ASN(ip string) (map[string]any, bool) {
	if g.asn == nil {
		return nil, false
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil, false
	}
	rec, err := g.asn.ASN(addr)
	if err != nil || rec == nil || rec.AutonomousSystemNumber == 0 {
		return nil, false
	}
	metrics.EnrichmentHits.WithLabelValues("asn").Inc()
	return map[string]any{
		"number": rec.AutonomousSystemNumber,
		"organization": map[string]any{
			"name": rec.AutonomousSystemOrganization,
		},
	}, true
}
