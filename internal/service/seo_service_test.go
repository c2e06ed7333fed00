package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sara-smart-go/internal/model"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const samplePage = `<!doctype html>
<html><head>
<title> Ronald Digital </title>
<meta name="description" content="Sites que vendem">
<meta name="viewport" content="width=device-width">
</head><body>
<h1>Bem-vindo</h1>
<h2>Serviços</h2>
<img src="/a.png" alt="logo">
<img src="/b.png">
<a href="/contato">Contato</a>
<a href="https://outro.com/x">Fora</a>
</body></html>`

func TestValidateURL(t *testing.T) {
	for _, raw := range []string{"", "exemplo.com", "ftp://exemplo.com", "https://", "::"} {
		_, err := ValidateURL(raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
	u, err := ValidateURL(" https://exemplo.com/a ")
	require.NoError(t, err)
	assert.Equal(t, "exemplo.com", u.Hostname())
}

func TestParsePage(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(samplePage))
	require.NoError(t, err)
	u, _ := url.Parse("https://ronald.digital/")
	snap := model.SiteSnapshot{}
	ParsePage(doc, u, &snap)

	assert.Equal(t, "Ronald Digital", snap.Title)
	assert.Equal(t, "Sites que vendem", snap.MetaDescription)
	assert.True(t, snap.Responsive)
	require.Len(t, snap.Headings, 2)
	assert.Equal(t, model.Heading{Tag: "h1", Text: "Bem-vindo"}, snap.Headings[0])
	require.Len(t, snap.Images, 2)
	assert.Equal(t, model.MissingAlt, snap.Images[1].Alt)
	require.Len(t, snap.Links, 1)
	assert.Equal(t, "/contato", snap.Links[0].Href)
}

func TestParsePageMissingTags(t *testing.T) {
	doc, _ := html.Parse(strings.NewReader("<html><body><p>oi</p></body></html>"))
	u, _ := url.Parse("http://x.com")
	snap := model.SiteSnapshot{}
	ParsePage(doc, u, &snap)
	assert.Equal(t, model.MissingTitle, snap.Title)
	assert.Equal(t, model.MissingDescription, snap.MetaDescription)
	assert.False(t, snap.Responsive)
}

func TestSEOScore(t *testing.T) {
	perfect := model.SiteSnapshot{
		HasHTTPS: true, Responsive: true, LoadTimeMs: 500,
		Title: "t", MetaDescription: "d",
		Headings: []model.Heading{{Tag: "h1"}},
	}
	assert.Equal(t, 100, SEOScore(perfect))

	twoH1 := perfect
	twoH1.Headings = []model.Heading{{Tag: "h1"}, {Tag: "h1"}}
	assert.Equal(t, 95, SEOScore(twoH1))

	slow := perfect
	slow.LoadTimeMs = 6000
	assert.Equal(t, 75, SEOScore(slow))

	worst := model.SiteSnapshot{
		LoadTimeMs: 9000, Title: model.MissingTitle, MetaDescription: model.MissingDescription,
		Images: []model.Image{{Alt: model.MissingAlt}}, Errors: []string{"x"},
	}
	assert.Equal(t, 0, SEOScore(worst))
}

func TestAnalyzeWithAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	completer := &fakeCompleter{replies: []string{"## 📋 Resumo Geral\nÓtimo site"}, provider: "gemini"}
	archiver := &fakeArchiver{}
	svc := NewSEOService(srv.Client(), completer, archiver, SEOOptions{FetchTimeout: time.Second})

	report, err := svc.Analyze(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, "gemini", report.Provider)
	assert.Contains(t, report.Analysis, "Ótimo site")
	// http (-15), imagem sem alt (-5)
	assert.Equal(t, 80, report.Score)
	require.NotNil(t, report.Snapshot)
	assert.Equal(t, 2, len(report.Snapshot.Headings))

	require.Equal(t, 1, completer.callCount())
	assert.Equal(t, "gemini", completer.opts[0].Preferred)
	assert.Contains(t, completer.calls[0][0].Content, "IMAGENS SEM ALT TEXT:\n1 de 2")

	require.Len(t, archiver.objects, 1)
	for name := range archiver.objects {
		assert.True(t, strings.HasPrefix(name, "seo-reports/127.0.0.1/"))
		assert.True(t, strings.HasSuffix(name, ".json"))
	}
	assert.True(t, strings.HasPrefix(report.ArchivedURL, "https://minio.local/seo-reports/"))
}

func TestAnalyzeFallsBackWhenAIFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	svc := NewSEOService(srv.Client(), &fakeCompleter{err: errors.New("all down")},
		&fakeArchiver{err: errors.New("minio down")}, SEOOptions{})
	report, err := svc.Analyze(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Empty(t, report.Provider)
	assert.Empty(t, report.ArchivedURL)
	assert.Contains(t, report.Analysis, "Analisei completamente o site")
	assert.Contains(t, report.Analysis, "**Nota Geral: 80/100** 🔥")
	assert.Contains(t, report.Analysis, "1/2 otimizadas")
}

func TestAnalyzeFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	completer := &fakeCompleter{replies: []string{"nunca"}}
	svc := NewSEOService(srv.Client(), completer, nil, SEOOptions{})
	report, err := svc.Analyze(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Contains(t, report.Error, "HTTP 503")
	assert.Contains(t, report.Analysis, "**Nota Geral: 60/100** ⚠️")
	assert.Equal(t, 0, completer.callCount())
	require.NotNil(t, report.Snapshot)
	assert.Len(t, report.Snapshot.Errors, 1)
}

func TestAnalyzeRefusesPrivateTargets(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	completer := &fakeCompleter{replies: []string{"nunca"}}
	svc := NewSEOService(nil, completer, nil, SEOOptions{FetchTimeout: time.Second})
	report, err := svc.Analyze(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Contains(t, report.Error, ErrBlockedAddress.Error())
	assert.Equal(t, 0, hits)
	assert.Equal(t, 0, completer.callCount())
}

func TestRejectNonPublic(t *testing.T) {
	for _, addr := range []string{
		"127.0.0.1:80", "[::1]:443", "10.1.2.3:80", "172.16.0.1:80", "192.168.0.10:8080",
		"169.254.169.254:80", "0.0.0.0:80", "100.64.0.1:80", "[fe80::1]:80", "[::ffff:127.0.0.1]:80",
	} {
		assert.ErrorIs(t, rejectNonPublic("tcp", addr, nil), ErrBlockedAddress, addr)
	}
	for _, addr := range []string{"93.184.216.34:443", "[2606:4700::1111]:443", "8.8.8.8:80"} {
		assert.NoError(t, rejectNonPublic("tcp", addr, nil), addr)
	}
}

func TestAnalyzeRejectsInvalidURL(t *testing.T) {
	svc := NewSEOService(nil, nil, nil, SEOOptions{})
	_, err := svc.Analyze(context.Background(), "notaurl")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestFallbackAnalysisScoreEmoji(t *testing.T) {
	bad := &model.SiteSnapshot{Title: model.MissingTitle, MetaDescription: model.MissingDescription, LoadTimeMs: 100}
	text := FallbackAnalysis("http://x.com", bad)
	assert.Contains(t, text, "🚨")
	assert.Contains(t, text, "Implementar SEO básico urgente")
	assert.Contains(t, text, "melhorias urgentes")
}
