package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	c, err := DecodeCommand([]byte(`{"type":"join","name":"  alice "}`))
	require.NoError(t, err)
	assert.Equal(t, TypeJoin, c.Type)
	assert.Equal(t, "alice", c.Name)

	c, err = DecodeCommand([]byte(`{"type":"move","column":0}`))
	require.NoError(t, err)
	require.NotNil(t, c.Column)
	assert.Equal(t, 0, *c.Column)

	c, err = DecodeCommand([]byte(`{"type":"reconnect","matchId":"m-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "m-1", c.MatchID)

	bad := []string{
		`not json`,
		`{"type":"move"}`,
		`{"type":"join","name":"   "}`,
		`{"type":"reconnect"}`,
		`{"type":"resign"}`,
	}
	for _, raw := range bad {
		_, err := DecodeCommand([]byte(raw))
		assert.True(t, errors.Is(err, ErrMalformed), "input %s: %v", raw, err)
	}
}

func TestMatchEndedEncodesNullWinner(t *testing.T) {
	raw, err := json.Marshal(MatchEnded{Type: TypeMatchEnded, Draw: true, Reason: "draw"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"winner":null`)
	assert.Contains(t, string(raw), `"winnerSide":null`)

	side, name := 2, "bob"
	raw, err = json.Marshal(MatchEnded{Type: TypeMatchEnded, WinnerSide: &side, Winner: &name, Reason: "connect4"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"winnerSide":2`)
	assert.Contains(t, string(raw), `"winner":"bob"`)

	typ, err := PeekType(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeMatchEnded, typ)
}

func TestCommandConstructorsRoundTrip(t *testing.T) {
	raw, err := json.Marshal(Move(4))
	require.NoError(t, err)
	c, err := DecodeCommand(raw)
	require.NoError(t, err)
	assert.Equal(t, 4, *c.Column)
}
