package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
)

func newTestProcess(t *testing.T) (*Process, *int) {
	t.Helper()
	p := New("cron-worker", &config.Config{App: config.AppConfig{Env: "dev", LogLevel: "error"}})
	code := -1
	p.exit = func(c int) { code = c }
	return p, &code
}

func TestNewStampsServiceKind(t *testing.T) {
	p, _ := newTestProcess(t)

	assert.Equal(t, "cron-worker", p.Config.Service.Kind)
	assert.NotNil(t, p.Logger)
}

func TestCloseRunsNewestFirstAndContinuesPastFailures(t *testing.T) {
	p, _ := newTestProcess(t)
	var order []string
	p.OnClose("database", func() error { order = append(order, "database"); return nil })
	p.OnClose("redis", func() error { order = append(order, "redis"); return errors.New("conn reset") })
	p.OnClose("pubsub", func() error { order = append(order, "pubsub"); return nil })

	p.Close()
	p.Close()

	assert.Equal(t, []string{"pubsub", "redis", "database"}, order)
}

func TestMustClosesAndExitsOnError(t *testing.T) {
	p, code := newTestProcess(t)
	closed := false
	p.OnClose("database", func() error { closed = true; return nil })

	p.Must("redis", nil)
	require.Equal(t, -1, *code)
	require.False(t, closed)

	p.Must("redis", errors.New("dial tcp: refused"))
	assert.Equal(t, 1, *code)
	assert.True(t, closed)
}

func TestFinishTreatsCancellationAsCleanShutdown(t *testing.T) {
	p, code := newTestProcess(t)
	p.Finish(context.Background(), context.Canceled)
	assert.Equal(t, -1, *code)

	p.Finish(context.Background(), errors.New("subscription deleted"))
	assert.Equal(t, 1, *code)
}
