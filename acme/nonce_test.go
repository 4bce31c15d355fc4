package acme_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wireapp/e2eident/acme"
)

func TestNoncePoolSeedThenTake(t *testing.T) {
	pool := acme.NewNoncePool()
	pool.Seed(acme.Nonce("n1"))

	n, err := pool.Take()
	require.NoError(t, err)
	require.Equal(t, acme.Nonce("n1"), n)
}

func TestNoncePoolTakeWithoutSeedErrors(t *testing.T) {
	pool := acme.NewNoncePool()
	_, err := pool.Take()
	require.Error(t, err)
}

func TestNoncePoolTakeConsumesNonce(t *testing.T) {
	pool := acme.NewNoncePool()
	pool.Seed(acme.Nonce("n1"))

	_, err := pool.Take()
	require.NoError(t, err)

	_, err = pool.Take()
	require.Error(t, err, "a second Take without an intervening Update must fail")
}

func TestNoncePoolUpdateThenTake(t *testing.T) {
	pool := acme.NewNoncePool()
	pool.Seed(acme.Nonce("n1"))
	_, _ = pool.Take()

	require.NoError(t, pool.Update(acme.Nonce("n2")))
	n, err := pool.Take()
	require.NoError(t, err)
	require.Equal(t, acme.Nonce("n2"), n)
}

func TestNoncePoolRejectsRepeatedNonce(t *testing.T) {
	pool := acme.NewNoncePool()
	pool.Seed(acme.Nonce("n1"))

	err := pool.Update(acme.Nonce("n1"))
	require.Error(t, err)
}

func TestNoncePoolRejectsEmptyNonce(t *testing.T) {
	pool := acme.NewNoncePool()
	err := pool.Update(acme.Nonce(""))
	require.Error(t, err)
}

func TestNoncePoolSatisfiesJoseNonceSource(t *testing.T) {
	pool := acme.NewNoncePool()
	pool.Seed(acme.Nonce("n1"))

	n, err := pool.Nonce()
	require.NoError(t, err)
	require.Equal(t, "n1", n)
}
