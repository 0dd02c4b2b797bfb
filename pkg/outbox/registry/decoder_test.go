package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
)

func TestDecoderRegistryStartsWithCatalogV1(t *testing.T) {
	reg := NewDecoderRegistry()

	out, err := reg.Decode(enums.EventUserInvited, 1, json.RawMessage(`{"email":"new@acme.test"}`))
	require.NoError(t, err)
	invited, ok := out.(*payloads.UserInvitedEvent)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "new@acme.test", invited.Email)

	_, err = reg.Decode(enums.EventUserInvited, 2, json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "no decoder for user_invited v2")
}

func TestDecoderRegistryAcceptsNewVersions(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderStatusChanged, 2, func(raw json.RawMessage) (any, error) {
		var m map[string]string
		return m, json.Unmarshal(raw, &m)
	})

	out, err := reg.Decode(enums.EventOrderStatusChanged, 2, json.RawMessage(`{"to":"shipped"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"to": "shipped"}, out)

	_, err = reg.Decode(enums.EventOrderStatusChanged, 1, json.RawMessage(`{`))
	assert.Error(t, err, "v1 stays registered")
}
