package target

import "github.com/jonathan/churnforge/internal/table"

// IDColumns are identifier columns dropped from the feature set.
var IDColumns = []string{"customerID", "CustomerID", "customer_id"}

// SplitXY separates a normalized table into the feature table and the 0/1 labels.
// A table holding only the target and ID columns is a *NoFeaturesError.
func SplitXY(t *table.Table, targetColumn string) (*table.Table, []int, error) {
	y, err := Labels(t, targetColumn)
	if err != nil {
		return nil, nil, err
	}
	drop := append([]string{targetColumn}, IDColumns...)
	X := t.Drop(drop...)
	if X.NumCols() == 0 {
		return nil, nil, &NoFeaturesError{Target: targetColumn, Rows: t.NumRows()}
	}
	return X, y, nil
}
