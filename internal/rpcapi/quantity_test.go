package rpcapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuantityAcceptsHexAndBareNumbers(t *testing.T) {
	var q Quantity
	require.NoError(t, json.Unmarshal([]byte(`"0x64"`), &q))
	require.EqualValues(t, 100, q)

	require.NoError(t, json.Unmarshal([]byte(`100`), &q))
	require.EqualValues(t, 100, q)

	require.Error(t, json.Unmarshal([]byte(`"donkey"`), &q))
}
