// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vodplay/internal/capability"
	"github.com/ManuGH/vodplay/internal/session"
)

var _ session.Surface = (*Headless)(nil)

func TestHeadless_SourceAndPlayState(t *testing.T) {
	h := NewHeadless("cli", nil)
	require.NoError(t, h.SetSource("/video/a.mp4"))
	assert.Equal(t, "/video/a.mp4", h.Source())
	assert.False(t, h.Playing())

	require.NoError(t, h.Play())
	assert.True(t, h.Playing())
	h.Pause()
	assert.False(t, h.Playing())

	require.NoError(t, h.Play())
	h.ClearSource()
	assert.Empty(t, h.Source())
	assert.False(t, h.Playing())
}

func TestHeadless_CanPlayTypeDelegates(t *testing.T) {
	safari := NewHeadless("s", capability.NewStaticQuerier(capability.MIMEHLSApple))
	assert.Equal(t, "probably", safari.CanPlayType(capability.MIMEHLSApple))
	assert.Empty(t, safari.CanPlayType(capability.MIMEVP9))

	assert.Empty(t, NewHeadless("n", nil).CanPlayType(capability.MIMEH264))
	assert.True(t, capability.Probe(safari).NativeHLS)
}
