// Package rating maps skill ratings to display tiers and computes the rating
// changes applied when a match settles.
package rating

import "strings"

// Tier is a display bracket for a rating. It is only used to annotate output.
type Tier int

const (
	Bronze Tier = iota
	Silver
	Gold
	Platinum
	Diamond
	Master
	Grandmaster
)

// lower bounds, indexed by Tier
var tierFloors = [...]int{
	Bronze:      0,
	Silver:      1500,
	Gold:        2000,
	Platinum:    2500,
	Diamond:     3000,
	Master:      3500,
	Grandmaster: 4000,
}

var tierNames = [...]string{
	Bronze:      "Bronze",
	Silver:      "Silver",
	Gold:        "Gold",
	Platinum:    "Platinum",
	Diamond:     "Diamond",
	Master:      "Master",
	Grandmaster: "Grandmaster",
}

// TierAt returns the tier a rating falls in. Negative ratings are Bronze.
func TierAt(r int) Tier {
	t := Bronze
	for i := len(tierFloors) - 1; i >= 0; i-- {
		if r >= tierFloors[i] {
			t = Tier(i)
			break
		}
	}
	return t
}

func (t Tier) String() string {
	if t < Bronze || t > Grandmaster {
		return "Unknown"
	}
	return tierNames[t]
}

// Token returns the emote token the gateway renders for the tier.
func (t Tier) Token() string {
	if t < Bronze || t > Grandmaster {
		return ":grey_question:"
	}
	return ":tier_" + strings.ToLower(tierNames[t]) + ":"
}

// Floor returns the lowest rating inside the tier.
func (t Tier) Floor() int {
	if t < Bronze || t > Grandmaster {
		return 0
	}
	return tierFloors[t]
}
