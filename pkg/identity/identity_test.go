package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotp2c/ditto-twin/pkg/identity"
)

func TestNew_DerivedNames(t *testing.T) {
	id, err := identity.New("org.Iotp2c", "iwatch3")
	require.NoError(t, err)

	assert.Equal(t, "org.Iotp2c:iwatch3", id.ThingID())
	assert.Equal(t, "mqtt-connection-iwatch3", id.ConnectionID())
	assert.Equal(t, "org.Iotp2c:iwatch3/things/twin/commands/modify", id.CommandTopic())
	assert.Equal(t, "org.Iotp2c:iwatch3/things/twin/events/modified", id.EventTopic())
	assert.Equal(t, "org.Iotp2c/iwatch3/things/twin/commands/modify", id.ProtocolTopic())
	assert.Equal(t, "org.Iotp2c:iwatch3", id.String())
}

func TestIdentity_ContainerName(t *testing.T) {
	id, err := identity.New("org.Iotp2c", "iwatch")
	require.NoError(t, err)

	assert.Equal(t, "iwatch-container", id.ContainerName("%s-container"))
	assert.Equal(t, "fixed-device", id.ContainerName("fixed-device"))
}

func TestNew_Invalid(t *testing.T) {
	cases := []struct {
		desc      string
		namespace string
		deviceID  string
	}{
		{desc: "empty device id", namespace: "org.Iotp2c", deviceID: ""},
		{desc: "empty namespace", namespace: "", deviceID: "iwatch"},
		{desc: "slash", namespace: "org.Iotp2c", deviceID: "i/watch"},
		{desc: "colon", namespace: "org.Iotp2c", deviceID: "org:iwatch"},
		{desc: "whitespace", namespace: "org.Iotp2c", deviceID: "i watch"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := identity.New(tc.namespace, tc.deviceID)
			assert.ErrorIs(t, err, identity.ErrInvalidDeviceID)
		})
	}
}
