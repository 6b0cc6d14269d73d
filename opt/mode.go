package opt

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Mode selects how much of the source's capabilities the optimizer uses
type Mode int

const (
	// ModeSimple plans in the row convention only
	ModeSimple Mode = iota

	// ModeAdvanced also lets sources scan natively, handing the rows over
	// to the row convention through converters
	ModeAdvanced

	// ModePushdown also pushes predicates and projections into native scans
	ModePushdown
)

func (self Mode) String() string {
	switch self {
	case ModeAdvanced:
		return "advanced"
	case ModePushdown:
		return "pushdown"
	default:
		return "simple"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple", "":
		return ModeSimple, nil
	case "advanced":
		return ModeAdvanced, nil
	case "pushdown":
		return ModePushdown, nil
	default:
		return ModeSimple, errors.Newf("unknown optimizer mode %q, expect simple, advanced or pushdown", s)
	}
}

var (
	SimpleRules = &RuleSet{
		Name: "simple",
		Rules: []*Rule{
			JoinCommute,
			FilterIntoJoin,
			ScanTableScan,
			FilterImpl,
			ProjectImpl,
			JoinNestedLoop,
			JoinHash,
			AggregateImpl,
			SortImpl,
			LimitImpl,
			ValuesImpl,
		},
	}

	AdvancedRules = func() *RuleSet {
		rs := SimpleRules.With("advanced", ScanNativeScan)
		rs.Converters = true
		return rs
	}()

	PushdownRules = AdvancedRules.With(
		"pushdown",
		FilterSplit,
		FilterPushdown,
		ProjectNarrow,
		ProjectPushdown,
	)
)

// Rules returns the rule set of a mode
func (self Mode) Rules() *RuleSet {
	switch self {
	case ModeAdvanced:
		return AdvancedRules
	case ModePushdown:
		return PushdownRules
	default:
		return SimpleRules
	}
}
