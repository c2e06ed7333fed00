package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, _ []Message, _ *GenerationParams) (string, error) {
	f.calls++
	return f.reply, f.err
}

func newTestManager(sleeps *[]time.Duration, regs ...Registration) *Manager {
	return NewManager(regs,
		WithFastOrder("gemini", "gpt4", "grok", "claude"),
		WithSleeper(func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		}),
	)
}

func TestManagerUsesPriorityOrder(t *testing.T) {
	var sleeps []time.Duration
	claude := &fakeProvider{name: "claude", reply: "olá"}
	gpt := &fakeProvider{name: "gpt4", reply: "oi"}
	m := newTestManager(&sleeps,
		Registration{Provider: claude, PricePerToken: 0.000015},
		Registration{Provider: gpt, PricePerToken: 0.00001},
	)

	res, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "oi"}}, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "claude", res.Provider)
	assert.Equal(t, "olá", res.Content)
	assert.Equal(t, 1, claude.calls)
	assert.Equal(t, 0, gpt.calls)
	assert.InDelta(t, 0.000015, res.Cost, 1e-12)
}

func TestManagerFallsBackAndWaitsOnRateLimit(t *testing.T) {
	var sleeps []time.Duration
	claude := &fakeProvider{name: "claude", err: errors.New("status 429: rate limit exceeded")}
	gpt := &fakeProvider{name: "gpt4", err: errors.New("connection refused")}
	gemini := &fakeProvider{name: "gemini", reply: `{"ok":true}`}
	m := newTestManager(&sleeps,
		Registration{Provider: claude},
		Registration{Provider: gpt},
		Registration{Provider: gemini},
	)

	res, err := m.Complete(context.Background(), nil, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeps, "only the rate-limited failure waits")
	assert.Equal(t, 1, claude.calls, "no retry on the same provider")
}

func TestManagerAllFail(t *testing.T) {
	var sleeps []time.Duration
	m := newTestManager(&sleeps,
		Registration{Provider: &fakeProvider{name: "claude", err: errors.New("boom")}},
		Registration{Provider: &fakeProvider{name: "grok", err: errors.New("last failure")}},
	)

	_, err := m.Complete(context.Background(), nil, CallOptions{})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.Contains(t, err.Error(), "last failure")
}

func TestManagerWithoutProviders(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Complete(context.Background(), nil, CallOptions{})
	assert.ErrorIs(t, err, ErrNoProviders)
	assert.False(t, m.Ready())
	assert.Equal(t, "none", m.Stats().PrimaryModel)
}

func TestManagerFastOrder(t *testing.T) {
	var sleeps []time.Duration
	claude := &fakeProvider{name: "claude", reply: "claude"}
	gemini := &fakeProvider{name: "gemini", reply: "gemini"}
	m := newTestManager(&sleeps, Registration{Provider: claude}, Registration{Provider: gemini})

	res, err := m.Complete(context.Background(), nil, CallOptions{Fast: true})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)

	res, err = m.Complete(context.Background(), nil, CallOptions{Preferred: "gemini"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)

	res, err = m.Complete(context.Background(), nil, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "claude", res.Provider)
}

func TestManagerStats(t *testing.T) {
	m := NewManager([]Registration{
		{Provider: &fakeProvider{name: "grok"}},
		{Provider: &fakeProvider{name: "gemini"}, Modern: true},
	})
	s := m.Stats()
	assert.Equal(t, 2, s.TotalModels)
	assert.Equal(t, []string{"grok", "gemini"}, s.AvailableModels)
	assert.Equal(t, "grok", s.PrimaryModel)
	assert.True(t, s.HasModernModel)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(errors.New("Rate limit reached")))
	assert.True(t, IsRateLimited(errors.New("chat api returned non-200 status: 429 Too Many Requests")))
	assert.False(t, IsRateLimited(errors.New("timeout")))
	assert.False(t, IsRateLimited(nil))
}

func TestEstimateCost(t *testing.T) {
	assert.Zero(t, EstimateCost("", 0.00001))
	// 8 个字符 = 2 tokens
	assert.InDelta(t, 2*0.00001, EstimateCost("abcdefgh", 0.00001), 1e-12)
	// 向上取整
	assert.InDelta(t, 3*0.00001, EstimateCost("abcdefghi", 0.00001), 1e-12)
}
