package vehicle

import (
	"strings"
)

// AddressUnavailable is the sentinel published when coordinates are missing
// or the reverse-geocode lookup failed.
const AddressUnavailable = "Unavailable"

// component types we care about, in lookup order.
var (
	streetNameTypes   = []string{"route", "street", "road"}
	streetNumberTypes = []string{"street_number"}
	cityTypes         = []string{"postal_town", "locality", "administrative_area_level_2"}
)

// ParseAddress extracts a short "street number, city" string from a
// reverse-geocode response. Components the response does not carry are left
// out; an unusable response yields AddressUnavailable.
func ParseAddress(response map[string]any) string {
	components, ok := response["addressComponents"].([]any)
	if !ok {
		return AddressUnavailable
	}

	var streetName, streetNumber, city string

	for _, c := range components {
		component, ok := c.(map[string]any)
		if !ok {
			continue
		}
		longName, _ := component["longName"].(string)
		types, _ := component["types"].([]any)

		for _, t := range types {
			typeName, _ := t.(string)
			switch {
			case contains(streetNameTypes, typeName):
				streetName = longName
			case contains(streetNumberTypes, typeName):
				streetNumber = longName
			case contains(cityTypes, typeName):
				city = longName
			}
		}
	}

	streetAddress := strings.TrimSpace(streetName + " " + streetNumber)

	var parts []string
	for _, p := range []string{streetAddress, city} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return AddressUnavailable
	}
	return strings.Join(parts, ", ")
}

// RawAddress joins every component's long name, preserving response order.
// Used for the unparsed address attribute.
func RawAddress(response map[string]any) string {
	components, ok := response["addressComponents"].([]any)
	if !ok {
		return AddressUnavailable
	}

	var names []string
	for _, c := range components {
		component, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if longName, ok := component["longName"].(string); ok && longName != "" {
			names = append(names, longName)
		}
	}
	if len(names) == 0 {
		return AddressUnavailable
	}
	return strings.Join(names, ", ")
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
