package factory

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focep/collecte-engine/commission"
)

func TestParseParameter_PercentBecomesFraction(t *testing.T) {
	// GIVEN: a collector parameter of 4.5 % as the UI writes it
	body := []byte(`{"scope":{"type":"collector","entity_id":"col-1"},"type":"percentage","value":4.5}`)

	// WHEN: parsing
	p, err := NewParameterFactory().ParseParameter(body)

	// THEN: the engine sees 0.045
	require.NoError(t, err)
	assert.Equal(t, commission.CollectorScope("col-1"), p.Scope)
	assert.Equal(t, commission.TypePercentage, p.Type)
	assert.True(t, p.Value.Equal(decimal.RequireFromString("0.045")), "got %s", p.Value)
	assert.True(t, p.Active)
}

func TestParseParameter_FixedKeepsCurrencyAmount(t *testing.T) {
	p, err := NewParameterFactory().ParseParameter([]byte(`{"scope":{"type":"AGENCY"},"type":"FIXED","value":"5000"}`))
	require.NoError(t, err)
	assert.True(t, p.Value.Equal(decimal.NewFromInt(5000)))
}

func TestParseParameter_TiersAreSortedAndConverted(t *testing.T) {
	body := []byte(`{
		"scope": {"type": "AGENCY"},
		"type": "TIER",
		"tiers": [
			{"min": 100000, "rate": 3},
			{"min": 0, "max": 100000, "rate": 5}
		]
	}`)

	p, err := NewParameterFactory().ParseParameter(body)
	require.NoError(t, err)
	require.Len(t, p.Tiers, 2)
	assert.True(t, p.Tiers[0].Min.IsZero())
	assert.True(t, p.Tiers[0].Rate.Equal(decimal.RequireFromString("0.05")))
	assert.Nil(t, p.Tiers[1].Max)
}

func TestParseParameter_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"percent above 100", `{"scope":{"type":"AGENCY"},"type":"PERCENTAGE","value":120}`},
		{"tier rate above 100", `{"scope":{"type":"AGENCY"},"type":"TIER","tiers":[{"min":0,"rate":150}]}`},
		{"min not below max", `{"scope":{"type":"AGENCY"},"type":"TIER","tiers":[{"min":500,"max":500,"rate":5}]}`},
		{"overlapping tiers", `{"scope":{"type":"AGENCY"},"type":"TIER","tiers":[{"min":0,"max":600,"rate":5},{"min":500,"rate":3}]}`},
		{"collector scope without id", `{"scope":{"type":"COLLECTOR"},"type":"FIXED","value":100}`},
		{"unknown type", `{"scope":{"type":"AGENCY"},"type":"BONUS","value":1}`},
		{"malformed", `{"scope":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParameterFactory().ParseParameter([]byte(tt.body))
			assert.ErrorIs(t, err, commission.ErrInvalidParameter)
		})
	}
}

func TestStrictFactory_RejectsGaps(t *testing.T) {
	body := []byte(`{"scope":{"type":"AGENCY"},"type":"TIER","tiers":[{"min":0,"max":1000,"rate":5},{"min":2000,"rate":3}]}`)

	_, err := NewParameterFactory().ParseParameter(body)
	assert.NoError(t, err, "gaps are allowed by default")

	_, err = NewStrictParameterFactory().ParseParameter(body)
	assert.ErrorIs(t, err, commission.ErrInvalidParameter)
}

func TestToJSON_RoundTripsUIUnits(t *testing.T) {
	f := NewParameterFactory()
	p, err := f.ParseParameter([]byte(`{"scope":{"type":"CLIENT","entity_id":"cli-9"},"type":"PERCENTAGE","value":2.5}`))
	require.NoError(t, err)

	raw, err := json.Marshal(f.ToJSON(p))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"value":"2.5"`)
	assert.Contains(t, string(raw), `"entity_id":"cli-9"`)
}
