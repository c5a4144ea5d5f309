package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuleConditionKnownKinds(t *testing.T) {
	t.Run("visit", func(t *testing.T) {
		var c RuleCondition
		require.NoError(t, json.Unmarshal([]byte(`{"kind":"VISIT","visit":{"everyVisits":5}}`), &c))
		require.Equal(t, TriggerVisit, c.Kind)
		require.NotNil(t, c.Visit)
		require.Equal(t, 5, c.Visit.EveryVisits)
		require.Nil(t, c.Spend)
		require.Nil(t, c.Referral)
	})

	t.Run("spend", func(t *testing.T) {
		var c RuleCondition
		require.NoError(t, json.Unmarshal([]byte(`{"kind":"SPEND","spend":{"minAmount":500}}`), &c))
		require.Equal(t, TriggerSpend, c.Kind)
		require.NotNil(t, c.Spend)
		require.Equal(t, int64(500), c.Spend.MinAmount)
	})

	t.Run("referral", func(t *testing.T) {
		var c RuleCondition
		require.NoError(t, json.Unmarshal([]byte(`{"kind":"REFERRAL","referral":{"minReferrals":3}}`), &c))
		require.Equal(t, TriggerReferral, c.Kind)
		require.NotNil(t, c.Referral)
		require.Equal(t, 3, c.Referral.MinReferrals)
	})
}

func TestRuleConditionRoundTrip(t *testing.T) {
	orig := RuleCondition{Kind: TriggerVisit, Visit: &VisitCondition{EveryVisits: 10}}
	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded RuleCondition
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, orig.Kind, decoded.Kind)
	require.Equal(t, orig.Visit, decoded.Visit)
}

func TestRuleConditionUnknownKindSurvivesResave(t *testing.T) {
	in := []byte(`{"kind":"BIRTHDAY","birthday":{"daysBefore":2}}`)

	var c RuleCondition
	require.NoError(t, json.Unmarshal(in, &c))
	require.Equal(t, TriggerUnknown, c.Kind)
	require.Nil(t, c.Visit)
	require.JSONEq(t, string(in), string(c.Raw))

	out, err := json.Marshal(c)
	require.NoError(t, err)
	require.JSONEq(t, string(in), string(out))
}
