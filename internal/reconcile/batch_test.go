package reconcile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

func TestBatch_KeepsInputOrder(t *testing.T) {
	var records []model.StatementRecord
	for i := 0; i < 50; i++ {
		records = append(records, record(fmt.Sprintf("s%02d", i), "0", fmt.Sprintf("%d", i), fmt.Sprintf("%d", i)))
	}

	out := Batch(records, Options{Workers: 4})
	require.Len(t, out.Results, 50)
	assert.Empty(t, out.Errors)
	for i, res := range out.Results {
		assert.Equal(t, fmt.Sprintf("s%02d", i), res.StatementID)
		assert.True(t, res.Balanced)
	}
}

func TestBatch_SplitsErrors(t *testing.T) {
	bad := record("bad", "0", "0")
	bad.EndingBalance = decimal.NullDecimal{}

	out := Batch([]model.StatementRecord{
		record("ok", "100.00", "140.00", "40.00"),
		bad,
		record("off", "100.00", "150.00", "40.00"),
	}, Options{})

	require.Len(t, out.Results, 2)
	assert.Equal(t, "ok", out.Results[0].StatementID)
	assert.Equal(t, "off", out.Results[1].StatementID)

	require.Len(t, out.Errors, 1)
	assert.Equal(t, "bad", out.Errors[0].StatementID)
	var ve *model.ValidationError
	assert.True(t, errors.As(out.Errors[0].Err, &ve))

	unbalanced := out.Unbalanced()
	require.Len(t, unbalanced, 1)
	assert.Equal(t, "off", unbalanced[0].StatementID)
	assert.Equal(t, "-10.00", unbalanced[0].Discrepancy.StringFixed(2))
}

func TestBatch_Empty(t *testing.T) {
	out := Batch(nil, Options{})
	assert.Empty(t, out.Results)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Unbalanced())
}
