package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/extract"
)

func TestFieldStrategy(t *testing.T) {
	t.Parallel()

	snap := domain.Snapshot{Fields: map[string]string{domain.FieldPrice: "  $1,250,000 "}}

	v, err := extract.FieldStrategy{Field: domain.FieldPrice}.Resolve(snap)
	require.NoError(t, err)
	assert.Equal(t, "$1,250,000", v)

	_, err = extract.FieldStrategy{Field: domain.FieldBeds}.Resolve(snap)
	require.ErrorIs(t, err, domain.ErrFieldNotFound)
}

func TestEntryStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []string
		want    string
		found   bool
	}{
		{"colon", []string{"Heating: Oil"}, "Oil", true},
		{"spaced colon", []string{"Heating : Forced Air, Oil"}, "Forced Air, Oil", true},
		{"case insensitive", []string{"HEATING: Gas"}, "Gas", true},
		{"multiline value", []string{"Heating:\n  Radiant"}, "Radiant", true},
		{"first non-empty wins", []string{"Heating:", "Heating: Oil"}, "Oil", true},
		{"different label", []string{"Heating Fuel: Oil"}, "", false},
		{"no colon", []string{"Heating"}, "", false},
		{"no entries", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := extract.EntryStrategy{Label: "Heating"}.Resolve(domain.Snapshot{Entries: tt.entries})
			if !tt.found {
				require.ErrorIs(t, err, domain.ErrFieldNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestTextLineStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"same line", "Interior\nHeating: Oil\nCooling: None", "Oil", true},
		{"next line", "Heating:\n\n  Hot Water\nCooling: Central", "Hot Water", true},
		{"spaced colon", "Heating : Gas", "Gas", true},
		{"label without colon", "Heating\nOil", "", false},
		{"absent", "Cooling: Central", "", false},
		{"trailing label", "Heating:", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := extract.TextLineStrategy{Label: "Heating"}.Resolve(domain.Snapshot{Text: tt.text})
			if !tt.found {
				require.ErrorIs(t, err, domain.ErrFieldNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	t.Parallel()

	chain := extract.Chain{
		extract.FieldStrategy{Field: domain.FieldPrice},
		extract.FieldStrategy{Field: domain.FieldPriceAlt},
	}

	snap := domain.Snapshot{Fields: map[string]string{domain.FieldPriceAlt: "$899,000"}}
	v, err := chain.Resolve(snap)
	require.NoError(t, err)
	assert.Equal(t, "$899,000", v)
}

func TestChain_ExhaustedYieldsSentinel(t *testing.T) {
	t.Parallel()

	chain := extract.Chain{
		extract.EntryStrategy{Label: "Heating"},
		extract.TextLineStrategy{Label: "Heating"},
	}

	v, err := chain.Resolve(domain.Snapshot{})
	require.ErrorIs(t, err, domain.ErrFieldNotFound)
	assert.Equal(t, domain.Sentinel, v)
}
