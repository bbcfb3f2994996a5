// Package shipping computes delivery fees from a free-text location and a
// total parcel weight. Matching is a substring, case-insensitive check
// against curated location-name lists, not authoritative geocoding.
package shipping

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	baseFree     = decimal.RequireFromString("0.00")
	baseBelt     = decimal.RequireFromString("10.00")
	baseState    = decimal.RequireFromString("20.00")
	baseNeighbor = decimal.RequireFromString("40.00")
	baseNational = decimal.RequireFromString("60.00")

	surchargeMid  = decimal.RequireFromString("15.00")
	surchargeHigh = decimal.RequireFromString("30.00")

	weightMidLimit  = decimal.RequireFromString("2.0")
	weightHighLimit = decimal.RequireFromString("5.0")
)

// freeZone ships free: the home metro and its state.
var freeZone = []string{"chennai", "tamil nadu"}

// chennaiBelt is the districts immediately surrounding the home metro.
var chennaiBelt = []string{"chengalpattu", "kanchipuram", "thiruvallur"}

// restOfState covers the remaining Tamil Nadu districts.
var restOfState = []string{
	"coimbatore", "madurai", "tiruchirappalli", "salem", "tirunelveli", "ariyalur",
	"cuddalore", "dharmapuri", "erode", "kallakurichi", "karur", "krishnagiri",
	"mayiladuthurai", "nagapattinam", "kanniyakumari", "namakkal", "perambalur",
	"pudukottai", "ramanathapuram", "ranipet", "sivagangai", "tenkasi", "thanjavur",
	"theni", "thiruvarur", "thoothukudi", "tirupathur", "tiruppur", "tiruvannamalai",
	"nilgiris", "vellore", "viluppuram", "virudhunagar",
}

// neighborStates lists the neighbouring states and their major metros, so
// city-granular addresses land in the right tier.
var neighborStates = []string{
	"karnataka", "bengaluru", "bangalore", "mysuru",
	"kerala", "kochi", "thiruvananthapuram",
	"andhra", "vijayawada", "visakhapatnam",
	"telangana", "hyderabad",
	"pondicherry", "puducherry",
}

// Cost returns the shipping fee for the given location text and total weight
// in kilograms, rounded to 2 fraction digits.
func Cost(location string, weightKg decimal.Decimal) decimal.Decimal {
	loc := strings.ToLower(strings.TrimSpace(location))

	if matchesAny(loc, freeZone) {
		return baseFree.Round(2)
	}

	var base decimal.Decimal
	switch {
	case matchesAny(loc, chennaiBelt):
		base = baseBelt
	case matchesAny(loc, restOfState):
		base = baseState
	case matchesAny(loc, neighborStates):
		base = baseNeighbor
	default:
		base = baseNational
	}

	var surcharge decimal.Decimal
	switch {
	case weightKg.LessThanOrEqual(weightMidLimit):
		surcharge = decimal.Zero
	case weightKg.LessThanOrEqual(weightHighLimit):
		surcharge = surchargeMid
	default:
		surcharge = surchargeHigh
	}

	return base.Add(surcharge).Round(2)
}

func matchesAny(loc string, names []string) bool {
	for _, name := range names {
		if strings.Contains(loc, name) {
			return true
		}
	}
	return false
}
