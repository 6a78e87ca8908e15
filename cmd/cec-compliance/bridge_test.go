package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

func TestMenuLanguage(t *testing.T) {
	for in, want := range map[string]string{"eng": "eng", "en": "eng", "de": "deu", " fra ": "fra"} {
		got, err := menuLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := menuLanguage("english")
	assert.Error(t, err)
}

func TestSimulatedBus(t *testing.T) {
	bus, err := simulatedBus([]string{"tv", "Recorder"}, "deu")
	require.NoError(t, err)
	defer bus.Close()

	require.NotNil(t, bus.Device(cec.AddrTV))
	assert.Equal(t, "deu", bus.Device(cec.AddrTV).Language)
	assert.NotNil(t, bus.Device(cec.AddrRecord1))
	assert.Nil(t, bus.Device(cec.AddrPlayback2))

	_, err = simulatedBus([]string{"toaster"}, "eng")
	assert.ErrorContains(t, err, "toaster")
}
