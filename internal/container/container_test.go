package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ id int }

func TestContainer_SingletonReturnsSameInstance(t *testing.T) {
	c := New()
	calls := 0
	c.RegisterSingleton("widget", func(c *Container) (interface{}, error) {
		calls++
		return &widget{id: calls}, nil
	})

	first, err := c.Resolve("widget")
	require.NoError(t, err)
	second, err := c.Resolve("widget")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestContainer_FactoryBuildsFresh(t *testing.T) {
	c := New()
	calls := 0
	c.RegisterFactory("widget", func(c *Container) (interface{}, error) {
		calls++
		return &widget{id: calls}, nil
	})

	first, err := c.Resolve("widget")
	require.NoError(t, err)
	second, err := c.Resolve("widget")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, calls)
}

func TestContainer_InstanceIsFixed(t *testing.T) {
	c := New()
	w := &widget{id: 42}
	c.RegisterInstance("widget", w)

	got, err := c.Resolve("widget")
	require.NoError(t, err)
	assert.Same(t, w, got)
}

func TestContainer_ScopedSharesWithinScopeNotAcross(t *testing.T) {
	c := New()
	calls := 0
	c.RegisterScoped("widget", func(c *Container) (interface{}, error) {
		calls++
		return &widget{id: calls}, nil
	})

	a1, err := c.ResolveScoped("req-a", "widget")
	require.NoError(t, err)
	a2, err := c.ResolveScoped("req-a", "widget")
	require.NoError(t, err)
	b1, err := c.ResolveScoped("req-b", "widget")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b1)
	assert.Equal(t, 2, calls)

	c.EndScope("req-a")
	a3, err := c.ResolveScoped("req-a", "widget")
	require.NoError(t, err)
	assert.NotSame(t, a1, a3)
}

func TestContainer_UnregisteredNameErrors(t *testing.T) {
	c := New()
	_, err := c.Resolve("missing")
	assert.Error(t, err)
}
