package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/llm"
	"sara-smart-go/pkg/log"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrInvalidURL 表示待分析的地址不是合法的 http(s) URL。
var ErrInvalidURL = errors.New("invalid url")

// maxPageBytes 限制抓取页面的大小。
const maxPageBytes = 5 * 1024 * 1024

// ReportArchiver 保存 SEO 报告并返回可下载的链接。
type ReportArchiver interface {
	Archive(ctx context.Context, objectName string, data []byte) (string, error)
}

// SEOService 抓取网站并生成 SEO 诊断。
type SEOService interface {
	Analyze(ctx context.Context, rawURL string) (*model.SEOReport, error)
}

// SEOOptions 是抓取参数。
type SEOOptions struct {
	FetchTimeout time.Duration
	UserAgent    string
}

type seoService struct {
	client    *http.Client
	completer llm.Completer
	archiver  ReportArchiver
	opts      SEOOptions
	now       func() time.Time
}

// NewSEOService 创建 SEO 分析服务，completer 和 archiver 均可为 nil。
// client 为 nil 时使用 SafeHTTPClient，拒绝抓取内网地址。
func NewSEOService(client *http.Client, completer llm.Completer, archiver ReportArchiver, opts SEOOptions) SEOService {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if client == nil {
		client = SafeHTTPClient()
	}
	return &seoService{client: client, completer: completer, archiver: archiver, opts: opts, now: time.Now}
}

// ValidateURL 只接受带主机名的 http 或 https 地址。
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return u, nil
}

// Analyze 抓取页面、计算分数并生成报告。抓取失败时返回 Success=false 的兜底报告而不是错误。
func (s *seoService) Analyze(ctx context.Context, rawURL string) (*model.SEOReport, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	log.Infof("开始 SEO 分析: %s", u.String())

	snap, fetchErr := s.collect(ctx, u)
	report := &model.SEOReport{
		Success:     fetchErr == nil,
		URL:         rawURL,
		Score:       SEOScore(snap),
		Snapshot:    &snap,
		GeneratedAt: s.now(),
	}
	if fetchErr != nil {
		log.Warnf("SEO 抓取失败: url=%s, err=%v", rawURL, fetchErr)
		report.Error = fetchErr.Error()
		report.Analysis = FallbackAnalysis(rawURL, nil)
	} else {
		report.Analysis, report.Provider = s.aiAnalysis(ctx, rawURL, snap)
	}

	s.archive(ctx, u, report)
	return report, nil
}

// collect 抓取页面并提取技术数据，失败信息同时记录在 snapshot.Errors 中。
func (s *seoService) collect(ctx context.Context, u *url.URL) (model.SiteSnapshot, error) {
	snap := model.SiteSnapshot{
		URL:      u.String(),
		HasHTTPS: u.Scheme == "https",
		Headings: []model.Heading{},
		Images:   []model.Image{},
		Links:    []model.Link{},
		Errors:   []string{},
	}

	body, elapsed, err := s.fetch(ctx, u)
	snap.LoadTimeMs = elapsed.Milliseconds()
	if err != nil {
		snap.Errors = append(snap.Errors, "Erro ao acessar site: "+err.Error())
		return snap, err
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		snap.Errors = append(snap.Errors, "Erro ao interpretar HTML: "+err.Error())
		return snap, err
	}
	ParsePage(doc, u, &snap)
	return snap, nil
}

func (s *seoService) fetch(ctx context.Context, u *url.URL) ([]byte, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, time.Since(start), err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, elapsed, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return body, elapsed, nil
}

// ParsePage 从 HTML 文档中提取标题、描述、标题层级、图片、站内链接和 viewport。
func ParsePage(doc *html.Node, pageURL *url.URL, snap *model.SiteSnapshot) {
	var title, description string
	var sawTitle, sawDescription bool
	host := pageURL.Hostname()

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if !sawTitle {
					sawTitle = true
					title = strings.TrimSpace(nodeText(n))
				}
			case "meta":
				switch strings.ToLower(attr(n, "name")) {
				case "description":
					if !sawDescription {
						sawDescription = true
						description = strings.TrimSpace(attr(n, "content"))
					}
				case "viewport":
					snap.Responsive = true
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				snap.Headings = append(snap.Headings, model.Heading{Tag: n.Data, Text: strings.TrimSpace(nodeText(n))})
			case "img":
				alt := attr(n, "alt")
				if alt == "" {
					alt = model.MissingAlt
				}
				snap.Images = append(snap.Images, model.Image{Src: attr(n, "src"), Alt: alt})
			case "a":
				href := attr(n, "href")
				if href != "" && (strings.HasPrefix(href, "/") || (host != "" && strings.Contains(href, host))) {
					snap.Links = append(snap.Links, model.Link{Href: href, Text: strings.TrimSpace(nodeText(n))})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title == "" {
		title = model.MissingTitle
	}
	if description == "" {
		description = model.MissingDescription
	}
	snap.Title = title
	snap.MetaDescription = description
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// SEOScore 从 100 分开始按问题扣分，最低为 0。
func SEOScore(s model.SiteSnapshot) int {
	score := 100
	if !s.HasHTTPS {
		score -= 15
	}
	if !s.Responsive {
		score -= 20
	}
	if s.LoadTimeMs > 3000 {
		score -= 15
	}
	if s.LoadTimeMs > 5000 {
		score -= 10
	}
	if s.Title == "" || s.Title == model.MissingTitle {
		score -= 10
	}
	if s.MetaDescription == "" || s.MetaDescription == model.MissingDescription {
		score -= 10
	}
	switch h1 := s.CountHeadings("h1"); {
	case h1 == 0:
		score -= 10
	case h1 > 1:
		score -= 5
	}
	if s.ImagesWithoutAlt() > 0 {
		score -= 5
	}
	if len(s.Errors) > 0 {
		score -= 10
	}
	if score < 0 {
		return 0
	}
	return score
}

// aiAnalysis 调用 LLM 生成五段式报告，失败时使用基于数据的兜底报告。
func (s *seoService) aiAnalysis(ctx context.Context, pageURL string, snap model.SiteSnapshot) (string, string) {
	if s.completer == nil {
		return FallbackAnalysis(pageURL, &snap), ""
	}
	res, err := s.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: buildSEOPrompt(pageURL, snap)},
	}, llm.CallOptions{
		Preferred:  "gemini",
		Generation: &llm.GenerationParams{Temperature: llm.Float64(0.7), MaxTokens: llm.Int(2000)},
	})
	if err != nil || strings.TrimSpace(res.Content) == "" {
		if err != nil {
			log.Warnf("SEO AI 分析失败，使用兜底报告: %v", err)
		}
		return FallbackAnalysis(pageURL, &snap), ""
	}
	return res.Content, res.Provider
}

// archive 尽力把报告写入对象存储。
func (s *seoService) archive(ctx context.Context, u *url.URL, report *model.SEOReport) {
	if s.archiver == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		log.Errorf("序列化 SEO 报告失败: %v", err)
		return
	}
	objectName := fmt.Sprintf("seo-reports/%s/%s.json", u.Hostname(), report.GeneratedAt.UTC().Format("20060102T150405Z"))
	link, err := s.archiver.Archive(ctx, objectName, data)
	if err != nil {
		log.Warnf("SEO 报告归档失败: object=%s, err=%v", objectName, err)
		return
	}
	report.ArchivedURL = link
}
