package target

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/churnforge/internal/table"
)

func TestNormalize_YesNo(t *testing.T) {
	tbl := table.MustNew(
		table.NumberColumn("A", 1, 2, 3),
		table.StringColumn("Churn", "Yes", "No", "Yes"),
	)

	out, err := Normalize(tbl, DefaultColumn)
	require.NoError(t, err)

	col, ok := out.Column(DefaultColumn)
	require.True(t, ok)
	assert.Equal(t, table.Numeric, col.DType())
	assert.Equal(t, []table.Value{table.Number(1), table.Number(0), table.Number(1)}, col.Values)
}

func TestNormalize_AnyMixtureOfKnownEncodings(t *testing.T) {
	known := []table.Value{
		table.String("Yes"), table.String("No"), table.String("True"), table.String("False"),
		table.String("1"), table.String("0"), table.Number(1), table.Number(0),
	}
	rng := rand.New(rand.NewSource(7))

	for trial := range 25 {
		t.Run(fmt.Sprintf("trial_%d", trial), func(t *testing.T) {
			n := 1 + rng.Intn(30)
			values := make([]table.Value, n)
			for i := range values {
				values[i] = known[rng.Intn(len(known))]
			}
			tbl := table.MustNew(table.Column{Name: "Churn", Values: values})

			out, err := Normalize(tbl, DefaultColumn)
			require.NoError(t, err)
			assert.Equal(t, n, out.NumRows())

			y, err := Labels(out, DefaultColumn)
			require.NoError(t, err)
			for _, v := range y {
				assert.Contains(t, []int{0, 1}, v)
			}
		})
	}
}

func TestNormalize_UnmappedValuesFail(t *testing.T) {
	tests := []struct {
		name      string
		values    []table.Value
		offending []string
	}{
		{"numeric two", []table.Value{table.Number(0), table.Number(2)}, []string{"2"}},
		{"maybe", []table.Value{table.String("Yes"), table.String("Maybe")}, []string{"Maybe"}},
		{"lowercase", []table.Value{table.String("yes")}, []string{"yes"}},
		{"missing", []table.Value{table.String("No"), table.Missing()}, []string{"NaN"}},
		{"fractional", []table.Value{table.Number(0.5)}, []string{"0.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := table.MustNew(table.Column{Name: "Churn", Values: tt.values})

			out, err := Normalize(tbl, DefaultColumn)
			assert.Nil(t, out)
			var normErr *NormalizationError
			require.ErrorAs(t, err, &normErr)
			assert.Equal(t, tt.offending, normErr.Offending)
			assert.Contains(t, err.Error(), "could not be normalized")
		})
	}
}

func TestNormalize_ReportsAtMostTenDistinctValues(t *testing.T) {
	values := make([]table.Value, 0, 30)
	for i := range 15 {
		values = append(values, table.String(fmt.Sprintf("v%02d", i)), table.String(fmt.Sprintf("v%02d", i)))
	}
	tbl := table.MustNew(table.Column{Name: "Churn", Values: values})

	_, err := Normalize(tbl, DefaultColumn)
	var normErr *NormalizationError
	require.ErrorAs(t, err, &normErr)
	require.Len(t, normErr.Offending, 10)
	assert.Equal(t, "v00", normErr.Offending[0])
	assert.Equal(t, "v09", normErr.Offending[9])
}

func TestNormalize_AbsentTargetIsNoOp(t *testing.T) {
	tbl := table.MustNew(table.StringColumn(" name ", " padded "))

	out, err := Normalize(tbl, DefaultColumn)
	require.NoError(t, err)
	assert.Same(t, tbl, out)
}

func TestNormalize_TrimsNamesAndCells(t *testing.T) {
	tbl := table.MustNew(
		table.StringColumn(" Contract ", "  One year", "Two year  "),
		table.NumberColumn("tenure", 1, 2),
		table.StringColumn("Churn ", " Yes ", "No"),
	)

	out, err := Normalize(tbl, DefaultColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"Contract", "tenure", "Churn"}, out.Columns())

	contract, _ := out.Column("Contract")
	assert.Equal(t, []table.Value{table.String("One year"), table.String("Two year")}, contract.Values)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	tbl := table.MustNew(table.StringColumn("Churn", "Yes"))

	_, err := Normalize(tbl, DefaultColumn)
	require.NoError(t, err)

	col, _ := tbl.Column("Churn")
	assert.Equal(t, table.String("Yes"), col.Values[0])
}

func TestSplitXY(t *testing.T) {
	tbl := table.MustNew(
		table.StringColumn("customerID", "a", "b", "c"),
		table.NumberColumn("x", 1, 2, 3),
		table.NumberColumn("Churn", 0, 1, 0),
	)

	X, y, err := SplitXY(tbl, DefaultColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, X.Columns())
	assert.Equal(t, []int{0, 1, 0}, y)
	assert.Equal(t, X.NumRows(), len(y))
}

func TestSplitXY_NoFeatureColumns(t *testing.T) {
	tbl := table.MustNew(
		table.StringColumn("customerID", "a", "b", "c"),
		table.NumberColumn("Churn", 0, 1, 0),
	)

	_, _, err := SplitXY(tbl, DefaultColumn)
	var noFeatures *NoFeaturesError
	require.ErrorAs(t, err, &noFeatures)
	assert.Equal(t, 3, noFeatures.Rows)
	assert.Contains(t, err.Error(), "no feature columns")
}

func TestSplitXY_MissingTarget(t *testing.T) {
	_, _, err := SplitXY(table.MustNew(table.NumberColumn("x", 1)), DefaultColumn)
	var missing *MissingTargetError
	require.ErrorAs(t, err, &missing)
}
