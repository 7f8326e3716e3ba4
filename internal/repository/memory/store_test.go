package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, map[string]json.RawMessage{
		"firstName": json.RawMessage(`"Asha"`),
		"pan":       json.RawMessage(`"ABCDE1234F"`),
	}))
	require.NoError(t, s.Set(ctx, map[string]json.RawMessage{
		"pan": json.RawMessage(`"ZZZZZ9999Z"`),
	}))

	all, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.JSONEq(t, `"ZZZZZ9999Z"`, string(all["pan"]))

	some, err := s.Get(ctx, "firstName", "missing")
	require.NoError(t, err)
	assert.Len(t, some, 1)
	assert.JSONEq(t, `"Asha"`, string(some["firstName"]))
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	in := json.RawMessage(`"x"`)
	require.NoError(t, s.Set(ctx, map[string]json.RawMessage{"k": in}))
	in[1] = 'y'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got["k"][1] = 'z'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(again["k"]))
}
