package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier("tok-a:alice,tok-b:bob")

	principal, err := v.Verify(context.Background(), "tok-a")
	require.NoError(t, err)
	assert.Equal(t, "alice", principal)

	principal, err = v.Verify(context.Background(), "tok-b")
	require.NoError(t, err)
	assert.Equal(t, "bob", principal)

	_, err = v.Verify(context.Background(), "tok-unknown")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestStaticVerifierSkipsMalformedEntries(t *testing.T) {
	v := NewStaticVerifier("tok-a:alice, ,broken,:nobody,tok-c:carol")

	principal, err := v.Verify(context.Background(), "tok-c")
	require.NoError(t, err)
	assert.Equal(t, "carol", principal)

	_, err = v.Verify(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNopVerifier(t *testing.T) {
	principal, err := NopVerifier{}.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "local-user", principal)
}

func TestNewVerifierSelection(t *testing.T) {
	assert.IsType(t, NopVerifier{}, NewVerifier(""))
	assert.IsType(t, NopVerifier{}, NewVerifier("   "))
	assert.IsType(t, &StaticVerifier{}, NewVerifier("tok:alice"))
}
