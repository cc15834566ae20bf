package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_GatedFlow(t *testing.T) {
	id := NewIdentity(true)
	assert.Equal(t, Locked, id.State())
	assert.False(t, id.Authenticated())

	require.NoError(t, id.Unlock("segredo", "segredo"))
	assert.Equal(t, NeedsName, id.State())
	assert.True(t, id.Authenticated())

	require.NoError(t, id.ConfirmName("  Ana Souza "))
	assert.Equal(t, NeedsSectorRole, id.State())
	assert.Equal(t, "Ana Souza", id.Name())

	require.NoError(t, id.ConfirmSectorRole("TI / Analista"))
	assert.Equal(t, Identified, id.State())
	assert.True(t, id.Identified())
	assert.Equal(t, "TI / Analista", id.SectorRole())
}

func TestIdentity_UngatedStartsAtName(t *testing.T) {
	id := NewIdentity(false)
	assert.Equal(t, NeedsName, id.State())
	assert.ErrorIs(t, id.Unlock("x", "x"), ErrInvalidTransition)
}

func TestIdentity_WrongPasswordStaysLocked(t *testing.T) {
	tests := []struct {
		name      string
		submitted string
	}{
		{"different", "outra"},
		{"case", "SEGREDO"},
		{"empty", ""},
		{"prefix", "segred"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id := NewIdentity(true)
			err := id.Unlock(tc.submitted, "segredo")
			assert.ErrorIs(t, err, ErrWrongPassword)
			assert.Equal(t, Locked, id.State())
		})
	}
}

func TestIdentity_EmptySecretNeverUnlocks(t *testing.T) {
	id := NewIdentity(true)
	assert.ErrorIs(t, id.Unlock("", ""), ErrWrongPassword)
	assert.Equal(t, Locked, id.State())
}

func TestIdentity_EmptyNameRejected(t *testing.T) {
	id := NewIdentity(false)
	assert.ErrorIs(t, id.ConfirmName("   "), ErrNameRequired)
	assert.Equal(t, NeedsName, id.State())
	assert.Empty(t, id.Name())
}

func TestIdentity_NameSetOnce(t *testing.T) {
	id := NewIdentity(false)
	require.NoError(t, id.ConfirmName("Ana"))
	assert.ErrorIs(t, id.ConfirmName("Bruna"), ErrInvalidTransition)
	assert.Equal(t, "Ana", id.Name())
}

func TestIdentity_SectorRoleBeforeNameRejected(t *testing.T) {
	id := NewIdentity(false)
	assert.ErrorIs(t, id.ConfirmSectorRole("TI"), ErrInvalidTransition)
	assert.Empty(t, id.SectorRole())
	assert.Equal(t, NeedsName, id.State())
}

func TestIdentity_EmptySectorRoleRejected(t *testing.T) {
	id := NewIdentity(false)
	require.NoError(t, id.ConfirmName("Ana"))
	assert.ErrorIs(t, id.ConfirmSectorRole(""), ErrSectorRoleRequired)
	assert.Equal(t, NeedsSectorRole, id.State())
}

func TestIdentity_IdentifiedIsTerminal(t *testing.T) {
	id := NewIdentity(false)
	require.NoError(t, id.ConfirmName("Ana"))
	require.NoError(t, id.ConfirmSectorRole("TI"))

	assert.ErrorIs(t, id.ConfirmName("Outra"), ErrInvalidTransition)
	assert.ErrorIs(t, id.ConfirmSectorRole("RH"), ErrInvalidTransition)
	assert.Equal(t, "Ana", id.Name())
	assert.Equal(t, "TI", id.SectorRole())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "identified", Identified.String())
	assert.Equal(t, "unknown", State(99).String())
}
