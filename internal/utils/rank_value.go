package utils

import "strings"

var tierOrder = map[string]int{
	"IRON":        1,
	"BRONZE":      2,
	"SILVER":      3,
	"GOLD":        4,
	"PLATINUM":    5,
	"EMERALD":     6,
	"DIAMOND":     7,
	"MASTER":      8,
	"GRANDMASTER": 9,
	"CHALLENGER":  10,
}

//  GetRankValue returns an int that represent the level of the rank.
//  	- "I" returns 4 as its the best rank possible
//  	- "IV" returns 1 as its the weakest rank possible
func GetRankValue(rank string) int {
	switch strings.ToUpper(rank) {
	case "I":
		return 4
	case "II":
		return 3
	case "III":
		return 2
	case "IV":
		return 1
	default:
		return 0
	}
}

// GetTierValue returns the position of a tier on the ladder, IRON being 1.
// Unknown tiers return 0.
func GetTierValue(tier string) int {
	return tierOrder[strings.ToUpper(tier)]
}
