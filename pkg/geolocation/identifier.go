package geolocation

import "fmt"

const unknownCountry = "XX"

// DatacenterIdentifier names a datacenter as ASN-COUNTRY, followed by the
// English city name when MaxMind knows it.
func DatacenterIdentifier(city *CityResponse) string {
	country := unknownCountry
	if city.Country != nil && city.Country.IsoCode != "" {
		country = city.Country.IsoCode
	}
	id := fmt.Sprintf("%d-%s", city.Traits.AutonomousSystemNumber, country)
	if city.City != nil {
		if name, ok := city.City.Names["en"]; ok {
			id = fmt.Sprintf("%s-%s", id, name)
		}
	}
	return id
}
