package riotapi

import (
	"fmt"
	"strings"
)

// DefaultTiers lists the divisioned ranked tiers from lowest to highest.
var DefaultTiers = []string{"IRON", "BRONZE", "SILVER", "GOLD", "PLATINUM", "EMERALD", "DIAMOND"}

// Divisions lists the sub-ranks of a tier, strongest first.
var Divisions = []string{"I", "II", "III", "IV"}

// Bucket is a (tier, division) pair, the unit of quota and progress.
type Bucket struct {
	Tier     string
	Division string
}

// NewBucket normalises tier and division to the upper-case form the API uses.
func NewBucket(tier, division string) Bucket {
	return Bucket{Tier: strings.ToUpper(tier), Division: strings.ToUpper(division)}
}

func (b Bucket) String() string {
	return fmt.Sprintf("%s %s", b.Tier, b.Division)
}
