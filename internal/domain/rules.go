package domain

import (
	"encoding/json"
	"time"
)

// Rule is an automation hook owned by a program: when its trigger fires and
// the condition holds, the linked reward is offered to the customer.
type Rule struct {
	ID        int64
	ProgramID int64
	Name      string
	Condition RuleCondition
	RewardID  *int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// RuleCondition is a tagged union over the known trigger kinds. Exactly one
// payload pointer is set for a known kind; unrecognized kinds round-trip
// through Raw so forward-compatible configurations survive a re-save.
type RuleCondition struct {
	Kind     RuleTrigger
	Visit    *VisitCondition
	Spend    *SpendCondition
	Referral *ReferralCondition
	Raw      json.RawMessage
}

// VisitCondition fires on every Nth accepted visit.
type VisitCondition struct {
	EveryVisits int `json:"everyVisits"`
}

// SpendCondition fires when a single spend meets the minimum amount.
type SpendCondition struct {
	MinAmount int64 `json:"minAmount"`
}

// ReferralCondition fires once the customer has referred enough people.
type ReferralCondition struct {
	MinReferrals int `json:"minReferrals"`
}

type ruleConditionJSON struct {
	Kind     RuleTrigger        `json:"kind"`
	Visit    *VisitCondition    `json:"visit,omitempty"`
	Spend    *SpendCondition    `json:"spend,omitempty"`
	Referral *ReferralCondition `json:"referral,omitempty"`
}

func (c RuleCondition) MarshalJSON() ([]byte, error) {
	if c.Kind == TriggerUnknown && len(c.Raw) > 0 {
		return c.Raw, nil
	}
	return json.Marshal(ruleConditionJSON{
		Kind:     c.Kind,
		Visit:    c.Visit,
		Spend:    c.Spend,
		Referral: c.Referral,
	})
}

func (c *RuleCondition) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind RuleTrigger `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.Kind {
	case TriggerVisit, TriggerSpend, TriggerReferral:
		var decoded ruleConditionJSON
		if err := json.Unmarshal(data, &decoded); err != nil {
			return err
		}
		*c = RuleCondition{
			Kind:     decoded.Kind,
			Visit:    decoded.Visit,
			Spend:    decoded.Spend,
			Referral: decoded.Referral,
		}
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*c = RuleCondition{Kind: TriggerUnknown, Raw: raw}
	}
	return nil
}
