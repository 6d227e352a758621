package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor.fusion/internal/config"
	"github.com/banshee-data/sensor.fusion/internal/fixedpoint"
)

func TestDefaultConfigMatchesDefaultsFile(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, baseConfig(), cfg)
}

func TestConfigFromTuning(t *testing.T) {
	str := func(s string) *string { return &s }

	tc := config.EmptyTuningConfig()
	tc.OverflowPolicy = str("wrap")
	tc.Association = str("nearest")
	tc.CapacityPolicy = str("replace_weakest")
	cfg, err := ConfigFromTuning(tc)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Wrap, cfg.Overflow)
	assert.Equal(t, Nearest, cfg.Association)
	assert.Equal(t, ReplaceWeakest, cfg.Capacity)
	assert.Equal(t, "nearest", cfg.Association.String())
	assert.Equal(t, "replace_weakest", cfg.Capacity.String())

	for _, field := range []string{"overflow", "association", "capacity"} {
		tc := config.EmptyTuningConfig()
		switch field {
		case "overflow":
			tc.OverflowPolicy = str("clip")
		case "association":
			tc.Association = str("hungarian")
		case "capacity":
			tc.CapacityPolicy = str("evict_oldest")
		}
		_, err := ConfigFromTuning(tc)
		assert.Error(t, err, field)
	}
}
