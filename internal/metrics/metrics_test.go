package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestEntityWrites(t *testing.T) {
	before := testutil.ToFloat64(EntityWrites.WithLabelValues("review", "create"))
	EntityWrites.WithLabelValues("review", "create").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(EntityWrites.WithLabelValues("review", "create")))
}
