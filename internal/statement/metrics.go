package statement

import (
	"strings"

	"github.com/seenimoa/krxvalue/pkg/models"
)

// MappingRule maps row labels containing Pattern to Key, unless the label also
// contains one of the Exclude substrings. Patterns and exclusions are compared
// against the compacted label (whitespace removed, ASCII upper-cased).
type MappingRule struct {
	Pattern string
	Key     models.MetricKey
	Exclude []string
}

func (r MappingRule) matches(label string) bool {
	if !strings.Contains(label, compact(r.Pattern)) {
		return false
	}
	for _, ex := range r.Exclude {
		if strings.Contains(label, compact(ex)) {
			return false
		}
	}
	return true
}

// ratioSuffixes mark the percentage/ratio variant of an amount line item.
var ratioSuffixes = []string{"률", "율", "증가"}

// DefaultRules is the ordered label vocabulary of Korean statement summaries.
// Ratio and margin rules come before the amount they are derived from, and
// the amount rules exclude ratio suffixes, so either order is safe.
var DefaultRules = []MappingRule{
	{Pattern: "영업이익률", Key: models.MetricOperatingMargin},
	{Pattern: "지배주주순이익률", Key: models.MetricNetMargin},
	{Pattern: "순이익률", Key: models.MetricNetMargin},
	{Pattern: "매출액", Key: models.MetricRevenue, Exclude: ratioSuffixes},
	{Pattern: "영업수익", Key: models.MetricRevenue, Exclude: ratioSuffixes},
	{Pattern: "영업이익", Key: models.MetricOperatingIncome, Exclude: append([]string{"발표기준"}, ratioSuffixes...)},
	{Pattern: "비지배주주순이익", Key: ""},
	{Pattern: "지배주주순이익", Key: models.MetricControllingNetIncome, Exclude: ratioSuffixes},
	{Pattern: "당기순이익", Key: models.MetricNetIncome, Exclude: ratioSuffixes},
	{Pattern: "영업활동현금흐름", Key: models.MetricOperatingCashFlow},
	{Pattern: "영업활동으로인한현금흐름", Key: models.MetricOperatingCashFlow},
	{Pattern: "자산총계", Key: models.MetricTotalAssets},
	{Pattern: "부채총계", Key: models.MetricTotalLiabilities},
	{Pattern: "자본총계", Key: models.MetricTotalEquity},
	{Pattern: "부채비율", Key: models.MetricDebtRatio},
	{Pattern: "당좌비율", Key: models.MetricQuickRatio},
	{Pattern: "유보율", Key: models.MetricReserveRatio},
	{Pattern: "이자보상배율", Key: models.MetricInterestCoverage},
	{Pattern: "시가배당률", Key: models.MetricDividendYield},
	{Pattern: "배당수익률", Key: models.MetricDividendYield},
	{Pattern: "배당성향", Key: models.MetricPayoutRatio},
	{Pattern: "주당배당금", Key: models.MetricDPS},
	{Pattern: "ROE", Key: models.MetricROE},
	{Pattern: "ROA", Key: models.MetricROA},
	{Pattern: "EPS", Key: models.MetricEPS, Exclude: ratioSuffixes},
	{Pattern: "BPS", Key: models.MetricBPS, Exclude: ratioSuffixes},
	{Pattern: "DPS", Key: models.MetricDPS, Exclude: ratioSuffixes},
	{Pattern: "SPS", Key: models.MetricSPS},
	{Pattern: "CPS", Key: models.MetricCPS},
	{Pattern: "PER", Key: models.MetricPER},
	{Pattern: "PBR", Key: models.MetricPBR},
	{Pattern: "PSR", Key: models.MetricPSR},
	{Pattern: "PCR", Key: models.MetricPCR},
}

// Mapper resolves raw row labels to canonical metric keys.
type Mapper struct {
	rules []MappingRule
}

// NewMapper creates a mapper over the given ordered rules, or DefaultRules
// when none are given.
func NewMapper(rules ...MappingRule) *Mapper {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Mapper{rules: rules}
}

// Map returns the metric key for a row label. The first matching rule wins.
// A rule with an empty Key claims the label without mapping it, which is how
// line items with no modeled counterpart are kept away from broader patterns.
func (m *Mapper) Map(label string) (models.MetricKey, bool) {
	norm := compact(label)
	if norm == "" {
		return "", false
	}
	for _, r := range m.rules {
		if r.matches(norm) {
			if r.Key == "" {
				return "", false
			}
			return r.Key, true
		}
	}
	return "", false
}
