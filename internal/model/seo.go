package model

import "time"

const (
	MissingTitle       = "Sem título"
	MissingDescription = "Sem meta description"
	MissingAlt         = "Sem alt text"
)

// Heading 是页面中的一个 h1-h6 标题。
type Heading struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// Image 是页面中的一张图片，缺少 alt 时 Alt 为 MissingAlt。
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Link 是页面中的一个站内链接。
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// SiteSnapshot 是抓取一个页面后得到的技术数据。
type SiteSnapshot struct {
	URL             string    `json:"url"`
	LoadTimeMs      int64     `json:"loadTime"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"metaDescription"`
	Headings        []Heading `json:"headings"`
	Images          []Image   `json:"images"`
	Links           []Link    `json:"links"`
	HasHTTPS        bool      `json:"hasHttps"`
	Responsive      bool      `json:"responsive"`
	Errors          []string  `json:"errors"`
}

// CountHeadings 返回指定标签的标题数量。
func (s SiteSnapshot) CountHeadings(tag string) int {
	n := 0
	for _, h := range s.Headings {
		if h.Tag == tag {
			n++
		}
	}
	return n
}

// ImagesWithoutAlt 返回缺少 alt 的图片数量。
func (s SiteSnapshot) ImagesWithoutAlt() int {
	n := 0
	for _, img := range s.Images {
		if img.Alt == MissingAlt {
			n++
		}
	}
	return n
}

// SEOTechnicalSummary 是接口响应中的技术数据摘要。
type SEOTechnicalSummary struct {
	LoadTime        int64  `json:"loadTime"`
	HasHTTPS        bool   `json:"hasHttps"`
	Responsive      bool   `json:"responsive"`
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	HeadingsCount   int    `json:"headingsCount"`
	ImagesCount     int    `json:"imagesCount"`
	LinksCount      int    `json:"linksCount"`
	ErrorsCount     int    `json:"errorsCount"`
}

// Summary 生成技术数据摘要。
func (s SiteSnapshot) Summary() SEOTechnicalSummary {
	return SEOTechnicalSummary{
		LoadTime:        s.LoadTimeMs,
		HasHTTPS:        s.HasHTTPS,
		Responsive:      s.Responsive,
		Title:           s.Title,
		MetaDescription: s.MetaDescription,
		HeadingsCount:   len(s.Headings),
		ImagesCount:     len(s.Images),
		LinksCount:      len(s.Links),
		ErrorsCount:     len(s.Errors),
	}
}

// SEOReport 是一次 SEO 分析的完整结果。
type SEOReport struct {
	Success     bool          `json:"success"`
	URL         string        `json:"url"`
	Score       int           `json:"score"`
	Analysis    string        `json:"analysis"`
	Provider    string        `json:"provider,omitempty"`
	Snapshot    *SiteSnapshot `json:"technicalData,omitempty"`
	Error       string        `json:"error,omitempty"`
	ArchivedURL string        `json:"reportUrl,omitempty"`
	GeneratedAt time.Time     `json:"timestamp"`
}
