package rates

// Tier is a budget bracket unlocking a fixed capability set.
type Tier string

const (
	TierStarter    Tier = "starter"
	TierBasic      Tier = "basic"
	TierGrowth     Tier = "growth"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Tier bracket upper bounds in USD of daily budget.
// A budget exactly on a boundary resolves to the lower tier.
const (
	starterMaxDaily = 1.00
	basicMaxDaily   = 5.00
	growthMaxDaily  = 25.00
	proMaxDaily     = 100.00
)

// TierLimits contains the capability limits for a budget tier.
type TierLimits struct {
	// DailyCeiling is the maximum daily budget the tier supports in USD.
	DailyCeiling float64

	// MaxLeadsPerDay is the lead generation ceiling for the tier.
	MaxLeadsPerDay int
}

// tierLimits is the fixed tier capability table.
var tierLimits = map[Tier]TierLimits{
	TierStarter:    {DailyCeiling: starterMaxDaily, MaxLeadsPerDay: 50},
	TierBasic:      {DailyCeiling: basicMaxDaily, MaxLeadsPerDay: 250},
	TierGrowth:     {DailyCeiling: growthMaxDaily, MaxLeadsPerDay: 1250},
	TierPro:        {DailyCeiling: proMaxDaily, MaxLeadsPerDay: 5000},
	TierEnterprise: {DailyCeiling: 1000.00, MaxLeadsPerDay: 25000},
}

// TierForDailyBudget derives the tier from a daily budget.
// Tier is a pure function of the daily budget.
func TierForDailyBudget(dailyBudget float64) Tier {
	switch {
	case dailyBudget <= starterMaxDaily:
		return TierStarter
	case dailyBudget <= basicMaxDaily:
		return TierBasic
	case dailyBudget <= growthMaxDaily:
		return TierGrowth
	case dailyBudget <= proMaxDaily:
		return TierPro
	default:
		return TierEnterprise
	}
}

// LimitsForTier returns the capability limits for a tier.
func LimitsForTier(tier Tier) TierLimits {
	limits, ok := tierLimits[tier]
	if !ok {
		return tierLimits[TierStarter]
	}
	return limits
}
