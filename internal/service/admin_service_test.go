package service

import (
	"context"
	"errors"
	"sara-smart-go/internal/config"
	"sara-smart-go/internal/model"
	"sara-smart-go/internal/repository"
	"sara-smart-go/pkg/hash"
	"sara-smart-go/pkg/token"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	hits  []model.SessionSearchHit
	err   error
	query string
	size  int
}

func (f *fakeSearcher) Search(_ context.Context, query string, size int) ([]model.SessionSearchHit, error) {
	f.query, f.size = query, size
	return f.hits, f.err
}

type adminFixture struct {
	svc           AdminService
	jwt           *token.JWTManager
	leads         repository.LeadRepository
	conversations repository.ConversationRepository
	records       repository.SessionRecordRepository
	searcher      *fakeSearcher
}

func newAdminFixture(t *testing.T, withSearch bool) *adminFixture {
	t.Helper()
	pw, err := hash.HashPassword("s3nha")
	require.NoError(t, err)
	f := &adminFixture{
		jwt:           token.NewJWTManager("test-secret", 1),
		leads:         repository.NewMemoryLeadRepository(),
		conversations: repository.NewMemoryConversationRepository(20),
		records:       repository.NewMemorySessionRecordRepository(10),
		searcher:      &fakeSearcher{},
	}
	var searcher SessionSearcher
	if withSearch {
		searcher = f.searcher
	}
	f.svc = NewAdminService(config.AdminConfig{Username: "ronald", PasswordHash: pw},
		f.jwt, f.leads, f.conversations, f.records, searcher)
	return f
}

func TestAdminLogin(t *testing.T) {
	f := newAdminFixture(t, false)

	res, err := f.svc.Login("ronald", "s3nha")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	claims, err := f.jwt.VerifyToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ronald", claims.Username)
	assert.Equal(t, token.RoleAdmin, claims.Role)

	_, err = f.svc.Login("ronald", "errada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login("outro", "s3nha")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLoginWithoutConfiguredAccount(t *testing.T) {
	svc := NewAdminService(config.AdminConfig{}, token.NewJWTManager("x", 1), nil, nil, nil, nil)
	_, err := svc.Login("", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminListLeads(t *testing.T) {
	f := newAdminFixture(t, false)
	ctx := context.Background()
	for i, score := range []int{1, 4, 3} {
		lead := model.Lead{SessionID: string(rune('a' + i)), Name: "Lead", LeadScore: score, Stage: model.StageDiscovery}
		require.NoError(t, f.leads.Upsert(ctx, &lead))
	}

	page, err := f.svc.ListLeads(ctx, 1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 2)
	assert.Equal(t, 4, page.Content[0].LeadScore)
	assert.Equal(t, 3, page.Content[1].LeadScore)

	hot, err := f.svc.ListLeads(ctx, 0, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, hot.Number)
	assert.Equal(t, 20, hot.Size)
	assert.Len(t, hot.Content, 2)
}

func TestAdminSearchSessions(t *testing.T) {
	disabled := newAdminFixture(t, false)
	_, err := disabled.svc.SearchSessions(context.Background(), "loja", 5)
	assert.ErrorIs(t, err, ErrSearchDisabled)

	f := newAdminFixture(t, true)
	f.searcher.hits = []model.SessionSearchHit{{Score: 1.5}}
	hits, err := f.svc.SearchSessions(context.Background(), "loja", 500)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "loja", f.searcher.query)
	assert.Equal(t, 10, f.searcher.size)

	f.searcher.err = errors.New("es down")
	_, err = f.svc.SearchSessions(context.Background(), "loja", 5)
	assert.Error(t, err)
}

func TestAdminConversations(t *testing.T) {
	f := newAdminFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.GetConversation(ctx, "nada")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.conversations.AppendMessages(ctx, "s1",
		model.ChatMessage{Role: model.RoleUser, Content: "oi", Timestamp: t0},
		model.ChatMessage{Role: model.RoleAssistant, Content: "olá", Timestamp: t0.Add(time.Second)},
	))
	require.NoError(t, f.conversations.AppendMessages(ctx, "s2",
		model.ChatMessage{Role: model.RoleUser, Content: "preço?", Timestamp: t0.Add(time.Hour)},
	))
	require.NoError(t, f.conversations.SaveProfile(ctx, "s1", model.LeadProfile{Name: "Ana"}))

	view, err := f.svc.GetConversation(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", view.Profile.Name)
	assert.Len(t, view.Messages, 2)

	all, err := f.svc.GetAllConversations(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s2", all[2].SessionID)
	assert.Equal(t, "2024-05-01T10:00:00", all[0].Timestamp)

	start := t0.Add(30 * time.Minute)
	later, err := f.svc.GetAllConversations(ctx, &start, nil)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "preço?", later[0].Content)
}

func TestAdminRecentSessions(t *testing.T) {
	f := newAdminFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.records.Save(ctx, &model.SessionRecord{SessionID: "s1", StartedAt: time.Now()}))
	recent, err := f.svc.RecentSessions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
