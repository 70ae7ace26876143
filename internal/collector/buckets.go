package collector

import (
	"slices"
	"sort"
	"strings"

	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
	"github.com/tristan-derez/match-collector/internal/utils"
)

// Plan returns the buckets of tiers in collection order: tiers ascending,
// divisions I to IV, except the highest tier which is walked IV to I so its
// most competitive division comes last.
func Plan(tiers []string) []riotapi.Bucket {
	ordered := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		ordered = append(ordered, strings.ToUpper(tier))
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return utils.GetTierValue(ordered[i]) < utils.GetTierValue(ordered[j])
	})

	strongestFirst := slices.Clone(riotapi.Divisions)
	sort.SliceStable(strongestFirst, func(i, j int) bool {
		return utils.GetRankValue(strongestFirst[i]) > utils.GetRankValue(strongestFirst[j])
	})
	weakestFirst := slices.Clone(strongestFirst)
	slices.Reverse(weakestFirst)

	var plan []riotapi.Bucket
	for i, tier := range ordered {
		divisions := strongestFirst
		if i == len(ordered)-1 {
			divisions = weakestFirst
		}
		for _, division := range divisions {
			plan = append(plan, riotapi.Bucket{Tier: tier, Division: division})
		}
	}
	return plan
}

// isTopTierFinal reports whether b is division I of the highest planned tier.
func isTopTierFinal(plan []riotapi.Bucket, b riotapi.Bucket) bool {
	if len(plan) == 0 {
		return false
	}
	return b.Tier == plan[len(plan)-1].Tier && b.Division == "I"
}
