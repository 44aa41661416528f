package playervenueservice

import "time"

// TargetingClass is a recency-based engagement tier.
type TargetingClass string

const (
	TargetingActiveEL           TargetingClass = "Active_EL"
	TargetingActive             TargetingClass = "Active"
	TargetingRetainInactive3160 TargetingClass = "Retain_Inactive31_60d"
	TargetingRetainInactive6190 TargetingClass = "Retain_Inactive61_90d"
	TargetingChurned91120       TargetingClass = "Churned_91_120d"
	TargetingChurned121180      TargetingClass = "Churned_121_180d"
	TargetingChurned181360      TargetingClass = "Churned_181_360d"
)

var targetingBuckets = []struct {
	maxDays int
	class   TargetingClass
}{
	{30, TargetingActiveEL},
	{60, TargetingActive},
	{90, TargetingRetainInactive3160},
	{120, TargetingRetainInactive6190},
	{180, TargetingChurned91120},
	{360, TargetingChurned121180},
}

// CalcTargetingClass buckets whole days since lastPlayed (memberSince when
// lastPlayed is nil) into a targeting class. First matching bucket wins.
func CalcTargetingClass(lastPlayed *time.Time, memberSince time.Time, now time.Time) TargetingClass {
	ref := memberSince
	if lastPlayed != nil {
		ref = *lastPlayed
	}
	days := int(now.Sub(ref) / (24 * time.Hour))
	for _, b := range targetingBuckets {
		if days <= b.maxDays {
			return b.class
		}
	}
	return TargetingChurned181360
}
