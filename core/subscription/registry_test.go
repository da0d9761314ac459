package subscription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/messenger/core/subscription"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("zero value matches nothing", func(t *testing.T) {
		t.Parallel()

		var r subscription.Registry
		assert.False(t, r.IsListening("anything"))
		assert.False(t, r.IsListening(""))
		assert.Zero(t, r.Len())
		r.Unlisten("missing")
		r.Unlisten("*missing")
	})

	t.Run("prefix match", func(t *testing.T) {
		t.Parallel()

		r := subscription.New()
		r.Listen("*sys")

		assert.True(t, r.IsListening("sys.alert"))
		assert.True(t, r.IsListening("sys"))
		assert.False(t, r.IsListening("other"))
		assert.False(t, r.IsListening("*sys"), "the marker is not part of the prefix")
	})

	t.Run("exact match", func(t *testing.T) {
		t.Parallel()

		r := subscription.New()
		r.Listen("foo")

		assert.True(t, r.IsListening("foo"))
		assert.False(t, r.IsListening("foobar"))
		assert.False(t, r.IsListening("fo"))
	})

	t.Run("bare wildcard matches every topic", func(t *testing.T) {
		t.Parallel()

		r := subscription.New()
		r.Listen("*")

		assert.True(t, r.IsListening("anything"))
		assert.True(t, r.IsListening(""))
	})

	t.Run("union of matchers", func(t *testing.T) {
		t.Parallel()

		r := subscription.New()
		r.Listen("*a")
		r.Listen("*ab")
		r.Listen("abc")

		assert.True(t, r.IsListening("abc"))
		assert.True(t, r.IsListening("abz"))
		assert.True(t, r.IsListening("az"))
		assert.False(t, r.IsListening("b"))
	})

	t.Run("listen is idempotent", func(t *testing.T) {
		t.Parallel()

		r := subscription.New()
		r.Listen("foo")
		r.Listen("foo")
		r.Listen("*sys")
		r.Listen("*sys")

		assert.Equal(t, 2, r.Len())
		assert.Equal(t, []string{"*sys", "foo"}, r.Topics())

		r.Unlisten("foo")
		assert.False(t, r.IsListening("foo"), "a single unlisten undoes repeated listens")
	})

	t.Run("unlisten is idempotent", func(t *testing.T) {
		t.Parallel()

		r := subscription.New()
		r.Listen("foo")
		r.Listen("*sys")

		r.Unlisten("*sys")
		r.Unlisten("*sys")
		r.Unlisten("foo")
		r.Unlisten("foo")

		assert.Zero(t, r.Len())
		assert.False(t, r.IsListening("sys.alert"))
		assert.False(t, r.IsListening("foo"))
	})

	t.Run("exact and prefix sets are independent", func(t *testing.T) {
		t.Parallel()

		r := subscription.New()
		r.Listen("sys")
		r.Listen("*sys")

		r.Unlisten("sys")
		assert.True(t, r.IsListening("sys"), "prefix entry still matches")
		assert.True(t, r.IsListening("sys.alert"))

		r.Unlisten("*sys")
		assert.False(t, r.IsListening("sys"))
	})
}
