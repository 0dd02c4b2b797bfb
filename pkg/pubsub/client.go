// Package pubsub wraps the Pub/Sub v2 client with project-relative resource
// names and startup checks for the topics or subscriptions a process needs.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNothingToVerify   = errors.New("pubsub client needs at least one topic or subscription")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

type resource struct {
	kind resourceKind
	name string
}

// Option declares a resource the client must find at startup and on Ping.
type Option func(*Client)

// RequireTopics is used by publishing processes.
func RequireTopics(names ...string) Option {
	return func(c *Client) { c.require(kindTopic, names) }
}

// RequireSubscriptions is used by consuming processes.
func RequireSubscriptions(names ...string) Option {
	return func(c *Client) { c.require(kindSubscription, names) }
}

type Client struct {
	raw       *pubsub.Client
	projectID string
	required  []resource
}

func NewClient(ctx context.Context, gcp config.GCPConfig, opts []Option, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	c := &Client{projectID: project}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.required) == 0 {
		return nil, errNothingToVerify
	}

	var creds []option.ClientOption
	switch {
	case gcp.CredentialsJSON != "":
		creds = append(creds, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		creds = append(creds, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	raw, err := pubsub.NewClient(ctx, project, creds...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c.raw = raw

	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project_id": project,
			"resources":  len(c.required),
		}), "pubsub.ready")
	}
	return c, nil
}

func (c *Client) require(kind resourceKind, names []string) {
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			c.required = append(c.required, resource{kind: kind, name: name})
		}
	}
}

// Ping confirms every required resource exists and reports all that do not.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	var errs error
	for _, res := range c.required {
		errs = multierr.Append(errs, c.lookup(ctx, res))
	}
	return errs
}

func (c *Client) lookup(ctx context.Context, res resource) error {
	full := c.resourceName(res.kind, res.name)
	var err error
	switch res.kind {
	case kindTopic:
		_, err = c.raw.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	case kindSubscription:
		_, err = c.raw.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", full)
	default:
		return fmt.Errorf("checking %s: %w", full, err)
	}
}

// Subscription returns a receiver for a subscription ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.raw == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.raw.Subscriber(c.resourceName(kindSubscription, name))
}

// Publisher returns a batching publisher for a topic ID or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.raw == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.raw.Publisher(c.resourceName(kindTopic, name))
}

func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// resourceName qualifies a bare ID with the client's project. Names that are
// already fully qualified pass through.
func (c *Client) resourceName(kind resourceKind, name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+string(kind)+"/") {
		return name
	}
	return fmt.Sprintf("projects/%s/%s/%s", c.projectID, kind, name)
}
