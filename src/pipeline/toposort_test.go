package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slugs(descriptors []Descriptor) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d.Slug)
	}

	return out
}

func desc(slug string, dependsOn ...string) Descriptor {
	return Descriptor{Slug: slug, DependsOn: dependsOn}
}

func TestSortDescriptors(t *testing.T) {
	t.Run("dependencies run first", func(t *testing.T) {
		sorted, err := sortDescriptors([]Descriptor{
			desc("analyzer", "trader"),
			desc("trader", "advisor"),
			desc("advisor"),
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"advisor", "trader", "analyzer"}, slugs(sorted))
	})

	t.Run("ties break on declaration order", func(t *testing.T) {
		sorted, err := sortDescriptors([]Descriptor{
			desc("b"),
			desc("a"),
			desc("c", "b"),
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, slugs(sorted))
	})

	t.Run("cycle is fatal", func(t *testing.T) {
		_, err := sortDescriptors([]Descriptor{
			desc("a", "b"),
			desc("b", "a"),
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCyclicDependency)
	})

	t.Run("dependency on a disabled plugin is fatal", func(t *testing.T) {
		_, err := sortDescriptors([]Descriptor{
			desc("a", "missing"),
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingDependency)
	})

	t.Run("empty input", func(t *testing.T) {
		sorted, err := sortDescriptors(nil)
		require.NoError(t, err)
		assert.Empty(t, sorted)
	})
}
