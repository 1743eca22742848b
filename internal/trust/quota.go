package trust

// QuotaPolicy maps trust levels to monthly submission quotas. Levels absent
// from the table fall back to the flat default; only BLOCKED is pinned out
// of the box. Tiered quotas per level are a product decision still pending,
// so the table is overridable but ships flat.
type QuotaPolicy map[Level]int

const defaultMonthlyQuota = 20

// DefaultQuotaPolicy returns the shipping policy: flat quota everywhere,
// zero for blocked accounts.
func DefaultQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{LevelBlocked: 0}
}

// MonthlyMax resolves the quota for a level.
func (p QuotaPolicy) MonthlyMax(level Level) int {
	if max, ok := p[level]; ok {
		return max
	}
	return defaultMonthlyQuota
}
