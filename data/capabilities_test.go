package data

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapabilitiesHexRoundTrip(t *testing.T) {
	caps := NewCapabilities()
	caps.EnableAll()

	tree, err := Encode(caps)
	require.NoError(t, err)

	m := tree.(map[string]any)
	require.Equal(t, "Capabilities", m[ClassKey])
	require.Len(t, m, 2)

	payload := m["cap"].(string)
	require.Len(t, payload, 1024)
	require.Equal(t, strings.Repeat("01", 512), payload)

	got, err := Decode(tree)
	require.NoError(t, err)
	require.Equal(t, caps, got)
}

func TestCapabilitiesGetSet(t *testing.T) {
	caps := NewCapabilities()

	require.Equal(t, CapUnsupported, caps.Get(CapVolumeCreate))
	require.NoError(t, caps.Set(CapVolumeCreate, CapSupported))
	require.Equal(t, CapSupported, caps.Get(CapVolumeCreate))

	t.Run("out of range read", func(t *testing.T) {
		require.Equal(t, CapUnknown, caps.Get(600))
		require.Equal(t, CapUnknown, caps.Get(-1))
	})

	t.Run("out of range write", func(t *testing.T) {
		requireDataError(t, caps.Set(600, CapSupported), ErrInvalid)
		requireDataError(t, caps.Set(-1, CapSupported), ErrInvalid)
	})

	t.Run("enable all", func(t *testing.T) {
		caps.EnableAll()
		require.Equal(t, CapSupported, caps.Get(0))
		require.Equal(t, CapSupported, caps.Get(511))
	})
}

func TestCapabilitiesDecodeErrors(t *testing.T) {
	t.Run("odd length", func(t *testing.T) {
		_, err := NewCapabilitiesFromHex(strings.Repeat("0", 1023))
		requireDataError(t, err, ErrCapability)
	})

	t.Run("invalid digits", func(t *testing.T) {
		_, err := NewCapabilitiesFromHex(strings.Repeat("zz", 512))
		requireDataError(t, err, ErrCapability)
	})

	t.Run("wrong slot count", func(t *testing.T) {
		_, err := NewCapabilitiesFromHex(strings.Repeat("01", 511))
		requireDataError(t, err, ErrCapability)
	})

	t.Run("via decoder", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"class": "Capabilities", "cap": "01"}`))
		requireDataError(t, err, ErrCapability)
	})

	t.Run("extra field", func(t *testing.T) {
		doc := `{"class": "Capabilities", "cap": "` + strings.Repeat("00", 512) + `", "x": 1}`
		_, err := Unmarshal([]byte(doc))
		requireDataError(t, err, ErrConstruct)
	})
}
