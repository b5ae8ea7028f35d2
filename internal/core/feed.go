package core

import (
	"sort"

	"aquasync/pkg/domain"
)

// EstimateFeeds derives the consumption state of every feed in the inventory.
// A species that accepts several feeds is charged its full portion against
// each of them, so days remaining are a lower bound.
func EstimateFeeds(inventory map[string]float64, stocking map[string]int, species map[string]domain.Species, cfg PlannerConfig) map[string]domain.FeedEstimate {
	out := make(map[string]domain.FeedEstimate, len(inventory))
	names := make([]string, 0, len(stocking))
	for name := range stocking {
		names = append(names, name)
	}
	sort.Strings(names)
	for feed, grams := range inventory {
		est := domain.FeedEstimate{Feed: feed, AvailableGrams: grams}
		var daily float64
		for _, name := range names {
			s, ok := species[name]
			if !ok || !s.Accepts(feed) || !s.PortionGrams.Known || !s.FeedingsPerDay.Known {
				continue
			}
			daily += s.PortionGrams.Value * float64(s.FeedingsPerDay.Value) * float64(stocking[name])
		}
		if daily <= 0 {
			est.Unused = true
			out[feed] = est
			continue
		}
		est.DailyConsumption = roundTo(daily, 2)
		est.DaysRemaining = roundTo(grams/daily, 1)
		est.IsLowStock = est.DaysRemaining <= cfg.LowStockDays
		est.IsCritical = est.DaysRemaining <= cfg.CriticalDays
		out[feed] = est
	}
	return out
}
