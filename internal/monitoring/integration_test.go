//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobalMetrics(t *testing.T) {
	original := GetGlobalMetrics()
	defer SetGlobalMetrics(original)

	SetGlobalMetrics(nil)
	assert.Nil(t, GetGlobalMetrics())
	assert.Nil(t, Resolve(nil))

	global := NewMetrics(nil)
	SetGlobalMetrics(global)
	assert.Same(t, global, GetGlobalMetrics())
	assert.Same(t, global, Resolve(nil))

	local := NewMetrics(nil)
	assert.Same(t, local, Resolve(local))
}
