// Package subsidy holds the static state solar incentive table.
package subsidy

import "strings"

// DefaultRegion is the key of the fallback entry.
const DefaultRegion = "Default"

// Disclaimer accompanies every subsidy figure shown to a user.
const Disclaimer = "Subsidy schemes vary by policy updates and may change over time. Verify with official state and MNRE portals before purchase."

// Entry is one region's incentive: a percentage of installed cost, capped.
type Entry struct {
	RegionKey      string
	SubsidyPercent float64
	MaxAmount      float64
	Description    string
}

// Amount returns min(totalCost × percent/100, cap), never above totalCost.
func (e Entry) Amount(totalCost float64) float64 {
	if totalCost <= 0 {
		return 0
	}
	amount := totalCost * e.SubsidyPercent / 100
	if amount > e.MaxAmount {
		amount = e.MaxAmount
	}
	if amount > totalCost {
		amount = totalCost
	}
	return amount
}

var defaultEntry = Entry{
	RegionKey:      DefaultRegion,
	SubsidyPercent: 30,
	MaxAmount:      30000,
	Description:    "Average 30% subsidy available",
}

// table is keyed by lower-cased region name and never mutated.
var table = map[string]Entry{
	"tamil nadu":  {RegionKey: "Tamil Nadu", SubsidyPercent: 40, MaxAmount: 40000, Description: "Up to 40% subsidy on solar panel installation"},
	"karnataka":   {RegionKey: "Karnataka", SubsidyPercent: 30, MaxAmount: 30000, Description: "Up to 30% subsidy on solar panel installation"},
	"maharashtra": {RegionKey: "Maharashtra", SubsidyPercent: 30, MaxAmount: 30000, Description: "Up to 30% subsidy on solar panel installation"},
	"gujarat":     {RegionKey: "Gujarat", SubsidyPercent: 40, MaxAmount: 40000, Description: "Up to 40% subsidy on solar panel installation"},
	"rajasthan":   {RegionKey: "Rajasthan", SubsidyPercent: 40, MaxAmount: 40000, Description: "Up to 40% subsidy on solar panel installation"},
	"default":     defaultEntry,
}

// Lookup returns the entry for a region. Matching ignores case and
// surrounding whitespace; unknown regions get the Default entry.
func Lookup(region string) Entry {
	if e, ok := table[strings.ToLower(strings.TrimSpace(region))]; ok {
		return e
	}
	return defaultEntry
}
