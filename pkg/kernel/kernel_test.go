package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKernelVerifies(t *testing.T) {
	k := Default()
	assert.NoError(t, k.Verify())
	assert.Len(t, k.Rules(), 5)
}

func TestMutationDetected(t *testing.T) {
	k := Default()
	k.Rules()[0].Name = "Tampered"

	err := k.Verify()
	require.Error(t, err)
	var integrity *IntegrityError
	assert.ErrorAs(t, err, &integrity)
}

func TestHashStableForSameRules(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestCustomRules(t *testing.T) {
	k := New([]Rule{{Name: "OnlyRule"}})
	assert.NoError(t, k.Verify())
	assert.NotEqual(t, Default().Hash(), k.Hash())
}
