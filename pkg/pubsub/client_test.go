package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "giftdesk-prod"}

	assert.Equal(t, "projects/giftdesk-prod/topics/gd-gifting-events", c.resourceName(kindTopic, "gd-gifting-events"))
	assert.Equal(t, "projects/other/topics/x", c.resourceName(kindTopic, "projects/other/topics/x"))
	assert.Equal(t, "projects/giftdesk-prod/subscriptions/gd-notify", c.resourceName(kindSubscription, " gd-notify "))
	assert.Equal(t, "projects/giftdesk-prod/subscriptions/projects/other/topics/x", c.resourceName(kindSubscription, "projects/other/topics/x"),
		"a topic path is not a subscription path")
}

func TestOptionsSkipBlankNames(t *testing.T) {
	c := &Client{}
	RequireTopics("gd-gifting", " ")(c)
	RequireSubscriptions("", "gd-notify")(c)

	assert.Equal(t, []resource{
		{kind: kindTopic, name: "gd-gifting"},
		{kind: kindSubscription, name: "gd-notify"},
	}, c.required)
}

func TestNewClientValidatesBeforeDialing(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, []Option{RequireTopics("t")}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, []Option{RequireTopics(" ")}, nil)
	assert.ErrorIs(t, err, errNothingToVerify)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("topic"))
	assert.Nil(t, c.Subscription("sub"))
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, c.Close())
}
