package rules

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"sentinel_go/internal/domain"
)

// Rule-file schema. Parsed once at startup; any invalid entry aborts the
// boot rather than running with a partial rule set.
type ruleFile struct {
	Rules []ruleConfig `yaml:"rules"`
}

type ruleConfig struct {
	Name        string            `yaml:"name"`
	Symbols     []string          `yaml:"symbols"`
	Quorum      int               `yaml:"quorum"` // 0 = all predicates must hold
	When        []conditionConfig `yaml:"when"`
	Action      actionConfig      `yaml:"action"`
	CooldownSec int               `yaml:"cooldown_sec"` // 0 = engine default
}

type conditionConfig struct {
	Feature string  `yaml:"feature"`
	Op      string  `yaml:"op"`
	Value   float64 `yaml:"value"`
}

type actionConfig struct {
	Side           string  `yaml:"side"`
	OrderType      string  `yaml:"order_type"` // empty = MARKET
	SizeFraction   float64 `yaml:"size_fraction"`
	LimitOffsetBps float64 `yaml:"limit_offset_bps"`
	Analyze        *bool   `yaml:"analyze"` // omitted = true, every fire is forwarded
}

// LoadFile reads and parses the declarative rule file.
func LoadFile(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Field: "rules", Err: err}
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &domain.ConfigError{Field: "rules", Err: err}
	}

	return parse(file.Rules)
}

// parse builds the immutable rule set. Every rule is validated in full;
// the first invalid entry aborts with a ConfigError naming its position.
func parse(cfgs []ruleConfig) ([]*Rule, error) {
	if len(cfgs) == 0 {
		return nil, &domain.ConfigError{
			Field: "rules",
			Err:   fmt.Errorf("at least one rule is required"),
		}
	}

	seen := make(map[string]bool, len(cfgs))
	parsed := make([]*Rule, 0, len(cfgs))

	for i, rc := range cfgs {
		field := fmt.Sprintf("rules[%d]", i)

		if rc.Name == "" {
			return nil, configErr(field+".name", "rule name is required")
		}
		if seen[rc.Name] {
			return nil, configErr(field+".name", "duplicate rule name %q", rc.Name)
		}
		seen[rc.Name] = true

		cond, err := parseCondition(field, rc)
		if err != nil {
			return nil, err
		}

		action, err := parseAction(field+".action", rc.Action)
		if err != nil {
			return nil, err
		}

		if rc.CooldownSec < 0 {
			return nil, configErr(field+".cooldown_sec", "cooldown must not be negative")
		}

		parsed = append(parsed, &Rule{
			Name:      rc.Name,
			Symbols:   rc.Symbols,
			Condition: cond,
			Action:    action,
			Cooldown:  time.Duration(rc.CooldownSec) * time.Second,
		})
	}

	return parsed, nil
}

func parseCondition(field string, rc ruleConfig) (Predicate, error) {
	if len(rc.When) == 0 {
		return nil, configErr(field+".when", "at least one predicate is required")
	}

	children := make([]Predicate, 0, len(rc.When))
	for j, cc := range rc.When {
		pfield := fmt.Sprintf("%s.when[%d]", field, j)

		if !domain.KnownField(cc.Feature) {
			return nil, configErr(pfield, "unknown feature %q (valid: %s)",
				cc.Feature, strings.Join(domain.FieldNames(), ", "))
		}
		switch cc.Op {
		case OpGT, OpLT, OpGTE, OpLTE:
		default:
			return nil, configErr(pfield, "unknown operator %q (valid: > < >= <=)", cc.Op)
		}

		children = append(children, &Comparison{
			Feature:   cc.Feature,
			Op:        cc.Op,
			Threshold: cc.Value,
		})
	}

	if rc.Quorum < 0 {
		return nil, configErr(field+".quorum", "quorum must not be negative")
	}
	if rc.Quorum > len(rc.When) {
		return nil, configErr(field+".quorum", "quorum %d exceeds predicate count %d",
			rc.Quorum, len(rc.When))
	}
	if rc.Quorum > 0 {
		return &AtLeast{K: rc.Quorum, Children: children}, nil
	}
	return &All{Children: children}, nil
}

func parseAction(field string, ac actionConfig) (Action, error) {
	if ac.Side != domain.SideBuy && ac.Side != domain.SideSell {
		return Action{}, configErr(field+".side", "side must be %q or %q, got %q",
			domain.SideBuy, domain.SideSell, ac.Side)
	}

	orderType := ac.OrderType
	if orderType == "" {
		orderType = domain.OrderTypeMarket
	}
	if orderType != domain.OrderTypeMarket && orderType != domain.OrderTypeLimit {
		return Action{}, configErr(field+".order_type", "order type must be %q or %q, got %q",
			domain.OrderTypeMarket, domain.OrderTypeLimit, ac.OrderType)
	}

	if ac.SizeFraction < 0 || ac.SizeFraction > 1 {
		return Action{}, configErr(field+".size_fraction", "size fraction must be in [0, 1]")
	}
	if ac.LimitOffsetBps != 0 && orderType != domain.OrderTypeLimit {
		return Action{}, configErr(field+".limit_offset_bps", "limit offset requires order_type LIMIT")
	}

	return Action{
		Side:           ac.Side,
		OrderType:      orderType,
		SizeFraction:   decimal.NewFromFloat(ac.SizeFraction),
		LimitOffsetBps: decimal.NewFromFloat(ac.LimitOffsetBps),
		Analyze:        ac.Analyze == nil || *ac.Analyze,
	}, nil
}

func configErr(field, format string, args ...interface{}) error {
	return &domain.ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}
