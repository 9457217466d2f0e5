// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecrets_Map(t *testing.T) {
	got := MaskSecrets(map[string]any{
		"username": "admin",
		"password": "secret123",
		"redis":    map[string]any{"addr": "cache:6379", "auth_token": "t"},
	}).(map[string]any)

	assert.Equal(t, "admin", got["username"])
	assert.Equal(t, "***", got["password"])
	nested := got["redis"].(map[string]any)
	assert.Equal(t, "cache:6379", nested["addr"])
	assert.Equal(t, "***", nested["auth_token"])
}

func TestMaskSecrets_Struct(t *testing.T) {
	got := MaskSecrets(&RedisConfig{Addr: "cache:6379", Password: "pw", DB: 2}).(map[string]any)
	assert.Equal(t, "cache:6379", got["Addr"])
	assert.Equal(t, "***", got["Password"])
	assert.Equal(t, 2, got["DB"])
}

func TestMaskSecrets_Nil(t *testing.T) {
	assert.Nil(t, MaskSecrets(nil))
	var p *RedisConfig
	assert.Nil(t, MaskSecrets(p))
}

func TestMaskURL(t *testing.T) {
	assert.Equal(t, "http://***@nas.local:8080/", MaskURL("http://user:pw@nas.local:8080/"))
	assert.Equal(t, "http://nas.local", MaskURL("http://nas.local"))
	assert.Equal(t, "", MaskURL(""))
}
