package wallet

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/rwallet/internal/types"
)

func TestEvaluate(t *testing.T) {
	n := types.Identity{0x0a}
	r1, r2 := types.Identity{0x01}, types.Identity{0x02}
	open := func(sigs ...types.Identity) Recovery {
		return Recovery{Proposal: &Proposal{ProposedOwner: n, Signatures: sigs, WindowEnd: 200}}
	}

	tests := []struct {
		name       string
		rec        Recovery
		now        uint64
		wantPhase  Phase
		wantCommit bool
	}{
		{"empty", Recovery{}, 100, NotInProgress, false},
		{"open below threshold", open(r1), 100, InProgress, false},
		{"window start", open(), 0, InProgress, false},
		{"last second of window", open(r1), 199, InProgress, false},
		{"window elapsed", open(r1), 200, CompletedAndReset, false},
		{"threshold met inside window", open(r1, r2), 100, CompletedAndReset, true},
		{"threshold met after window", open(r1, r2), 500, CompletedAndReset, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase, commit := evaluate(tt.rec, 2, tt.now)
			assert.Equal(t, tt.wantPhase, phase)
			assert.Equal(t, tt.wantCommit, commit)
		})
	}
}

func TestWindowEndSaturates(t *testing.T) {
	assert.Equal(t, uint64(98745), windowEnd(12345, 86400))
	assert.Equal(t, uint64(12345), windowEnd(12345, 0))
	assert.Equal(t, uint64(math.MaxUint64), windowEnd(10, math.MaxUint64-5))
}

func TestRecoveryAccessorsOnEmpty(t *testing.T) {
	var rec Recovery
	assert.False(t, rec.Active())
	assert.True(t, types.IsZero(rec.ProposedOwner()))
	assert.Nil(t, rec.Signatures())
	assert.Zero(t, rec.SignatureCount())
	assert.Zero(t, rec.WindowEnd())
	assert.False(t, rec.HasSigned(types.Identity{0x01}))
}

func TestSignaturesIsACopy(t *testing.T) {
	r1 := types.Identity{0x01}
	rec := Recovery{Proposal: &Proposal{Signatures: []types.Identity{r1}}}
	sigs := rec.Signatures()
	sigs[0] = types.Identity{0x02}
	assert.True(t, rec.HasSigned(r1))
}

func TestPhaseText(t *testing.T) {
	data, err := json.Marshal(map[string]Phase{"phase": CompletedAndReset})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"CompletedAndReset"}`, string(data))

	var p Phase
	require.NoError(t, p.UnmarshalText([]byte("InProgress")))
	assert.Equal(t, InProgress, p)
	assert.Error(t, p.UnmarshalText([]byte("Done")))
	assert.Equal(t, "Phase(7)", Phase(7).String())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, 6, Code(ErrAlreadySigned))
	assert.Equal(t, 8, Code(fmt.Errorf("withdraw: %w", ErrInsufficientFunds)))
	assert.Equal(t, 0, Code(nil))
	assert.Equal(t, 0, Code(assert.AnError))
}
