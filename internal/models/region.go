package models

import (
	"fmt"
	"strings"
)

// Region is a voter-facing constituency.
type Region string

const (
	RegionWest      Region = "WEST"
	RegionSoutheast Region = "SOUTHEAST"
	RegionEast      Region = "EAST"
)

var regionNames = map[Region]string{
	RegionWest:      "West",
	RegionSoutheast: "Southeast",
	RegionEast:      "East",
}

// AllRegions returns the regions in the order a member lookup tries them.
func AllRegions() []Region {
	return []Region{RegionWest, RegionSoutheast, RegionEast}
}

// Pretty falls back to the raw code for regions the bot does not know.
func (r Region) Pretty() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return string(r)
}

func ParseRegion(raw string) (Region, error) {
	region := Region(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := regionNames[region]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, raw)
	}
	return region, nil
}
