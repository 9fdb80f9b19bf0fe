package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andersCTO/poolPumpControl/pkg/config"
	"github.com/andersCTO/poolPumpControl/pkg/relay"
	"github.com/andersCTO/poolPumpControl/pkg/storage"
)

func TestSetupOutputsNone(t *testing.T) {
	a := New(&config.CliConfig{Driver: "none"})

	out, closer, err := a.setupOutputs()
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &relay.FakeOutputs{}, out)
}

func TestSetupOutputsUnknownDriver(t *testing.T) {
	a := New(&config.CliConfig{Driver: "spi"})

	_, _, err := a.setupOutputs()
	assert.ErrorContains(t, err, "unknown relay driver")
}

func TestLocalNowFollowsTimezone(t *testing.T) {
	a := New(&config.CliConfig{})

	settings := storage.DefaultSettings()
	settings.TimezoneOffset = 2
	a.setTimezone(settings)

	_, offset := a.localNow().Zone()
	assert.Equal(t, 2*3600, offset)
}

func TestNextDelay(t *testing.T) {
	d := nextDelay()
	assert.Greater(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, time.Hour+time.Second*30)
}
