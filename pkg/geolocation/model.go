package geolocation

import "time"

// CityResponse is the subset of a MaxMind GeoIP2 City response the exporter reads.
type CityResponse struct {
	City      *City      `json:"city,omitempty"`
	Continent *Continent `json:"continent,omitempty"`
	Country   *Country   `json:"country,omitempty"`
	Location  *Location  `json:"location,omitempty"`
	Traits    Traits     `json:"traits"`
}

type City struct {
	GeonameID uint32            `json:"geoname_id"`
	Names     map[string]string `json:"names"`
}

type Continent struct {
	Code  string            `json:"code"`
	Names map[string]string `json:"names"`
}

type Country struct {
	GeonameID uint32            `json:"geoname_id"`
	IsoCode   string            `json:"iso_code"`
	Names     map[string]string `json:"names"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeZone  string  `json:"time_zone"`
}

type Traits struct {
	AutonomousSystemNumber       uint32 `json:"autonomous_system_number"`
	AutonomousSystemOrganization string `json:"autonomous_system_organization"`
	ISP                          string `json:"isp"`
	Organization                 string `json:"organization"`
	IPAddress                    string `json:"ip_address"`
}

// GeoInfo is a cached lookup together with the moment it was made.
type GeoInfo struct {
	Response  CityResponse `json:"response"`
	FetchedAt time.Time    `json:"fetched_at"`
}
