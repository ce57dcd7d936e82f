package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/utils"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		strings.Join(csvHeader, ";"),
		"cust-1;650;40;5;25000.50;2;1;1;60000;0;4;1200;female;France;RUBIS",
		"cust-2;720;45;8;0;1;0;0;95000;1;2;4200;male;Germany;GOLD",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, rows[0].Err)
	require.NoError(t, rows[1].Err)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, 3, rows[1].Number)

	first := rows[0].Record
	assert.Equal(t, "cust-1", first.ID)
	assert.Equal(t, 650, first.CreditScore)
	assert.Equal(t, 40, first.Age)
	assert.Equal(t, "25000.5", first.Balance.String())
	assert.True(t, first.HasCreditCard)
	assert.True(t, first.IsActiveMember)
	assert.False(t, first.HasComplaint)
	assert.Equal(t, models.GenderFemale, first.Gender)
	assert.Equal(t, models.CountryFrance, first.Country)
	assert.Equal(t, models.TierRubis, first.Tier)

	second := rows[1].Record
	assert.Equal(t, models.GenderMale, second.Gender)
	assert.Equal(t, models.CountryGermany, second.Country)
	assert.Equal(t, models.TierGold, second.Tier)
	assert.True(t, second.HasComplaint)
}

func TestParseCSV_Errors(t *testing.T) {
	t.Run("wrong header", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader("foo;bar\n1;2\n"), 0)
		assert.Error(t, err)
	})

	t.Run("malformed field fails only its row", func(t *testing.T) {
		input := strings.Join([]string{
			strings.Join(csvHeader, ";"),
			"cust-1;not-a-number;40;5;25000;2;1;1;60000;0;4;1200;female;France;RUBIS",
			"cust-2;720;45;8;0;1;0;0;95000;1;2;4200;male;Germany;GOLD",
		}, "\n")

		rows, err := ParseCSV(strings.NewReader(input), 0)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		require.Error(t, rows[0].Err)
		var rowErr *utils.BatchRowError
		require.ErrorAs(t, rows[0].Err, &rowErr)
		assert.Equal(t, 2, rowErr.Row)
		assert.Contains(t, rows[0].Err.Error(), "credit_score")

		require.NoError(t, rows[1].Err)
		assert.Equal(t, "cust-2", rows[1].Record.ID)
	})

	t.Run("row limit enforced", func(t *testing.T) {
		input := strings.Join([]string{
			strings.Join(csvHeader, ";"),
			"cust-1;650;40;5;25000;2;1;1;60000;0;4;1200;female;France;RUBIS",
			"cust-2;650;40;5;25000;2;1;1;60000;0;4;1200;female;France;RUBIS",
		}, "\n")

		_, err := ParseCSV(strings.NewReader(input), 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row limit")
	})
}

func TestTemplateCSV_RoundTrips(t *testing.T) {
	template := TemplateCSV()
	assert.True(t, strings.HasPrefix(template, strings.Join(csvHeader, ";")))

	rows, err := ParseCSV(strings.NewReader(template), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, rows[0].Err)
	assert.Equal(t, 600, rows[0].Record.CreditScore)
	assert.Equal(t, models.CountryFrance, rows[0].Record.Country)
	assert.Equal(t, models.TierGold, rows[1].Record.Tier)
}
