package connstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKeywordRegistry_Duplicates(t *testing.T) {
	t.Parallel()

	// a spelling that only differs from its own name by spacing is harmless
	assert.NotPanics(t, func() {
		r := newKeywordRegistry([]Keyword{{Name: "Query Consistency", Aliases: []string{"QueryConsistency"}}})
		kw, ok := r.find("queryconsistency")
		assert.True(t, ok)
		assert.Equal(t, "Query Consistency", kw.Name)
	})

	assert.Panics(t, func() {
		newKeywordRegistry([]Keyword{
			{Name: "Data Source", Aliases: []string{"Server"}},
			{Name: "Address", Aliases: []string{"SERVER"}},
		})
	})
}
