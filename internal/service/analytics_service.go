package service

import (
	"context"
	"fmt"
	"math"
	"sara-smart-go/internal/lead"
	"sara-smart-go/internal/model"
	"sara-smart-go/internal/repository"
	"sara-smart-go/pkg/log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// recentConversations 是报告中参与统计的最近会话数量。
const recentConversations = 100

// SessionSink 接收已结束的会话，Kafka 发布者和直接归档器都实现了它。
type SessionSink interface {
	Publish(ctx context.Context, record model.SessionRecord) error
}

// Turn 是交给分析服务记录的一轮对话。
type Turn struct {
	UserMessage string
	Response    string
	Intent      model.Intent
	Methodology model.Methodology
	LeadScore   int
	Stage       model.Stage
	Extracted   model.LeadProfile
	Cost        float64
}

// AnalyticsService 跟踪进行中的会话并生成仪表盘、报告与 ROI。
type AnalyticsService interface {
	HasSession(sessionID string) bool
	StartSession(sessionID string, meta model.SessionMeta)
	TrackInteraction(sessionID string, turn Turn)
	// EndSession 结束会话并交给 sink，未知会话返回 nil。sink 失败时会话仍保留，可再次结束。
	EndSession(ctx context.Context, sessionID string, outcome model.Outcome) (*model.SessionMetrics, error)
	Dashboard(ctx context.Context) (Dashboard, error)
	Report(ctx context.Context) (Report, error)
	Stats(ctx context.Context) (model.GlobalStats, error)
	ROI(ctx context.Context) (ROI, error)
	Close(ctx context.Context) error
}

// AnalyticsOptions 是 ROI 计算参数。
type AnalyticsOptions struct {
	AvgTicketBRL float64
	USDToBRL     float64
}

type trackedSession struct {
	id            string
	start         time.Time
	meta          model.SessionMeta
	messages      []model.Interaction
	lead          model.LeadProfile
	score         int
	stage         model.Stage
	intents       []model.Intent
	methodologies []model.Methodology
	cost          float64
}

type analyticsService struct {
	sink    SessionSink
	records repository.SessionRecordRepository
	stats   repository.StatsRepository
	opts    AnalyticsOptions
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*trackedSession
}

// NewAnalyticsService 创建分析服务。
func NewAnalyticsService(sink SessionSink, records repository.SessionRecordRepository, stats repository.StatsRepository, opts AnalyticsOptions) AnalyticsService {
	if opts.AvgTicketBRL <= 0 {
		opts.AvgTicketBRL = 800
	}
	if opts.USDToBRL <= 0 {
		opts.USDToBRL = 5
	}
	return &analyticsService{
		sink:     sink,
		records:  records,
		stats:    stats,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*trackedSession),
	}
}

func (s *analyticsService) HasSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	return ok
}

func (s *analyticsService) StartSession(sessionID string, meta model.SessionMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &trackedSession{
		id:    sessionID,
		start: s.now(),
		meta:  meta,
		stage: model.StageInitial,
	}
	log.Infof("Analytics: 新会话开始 %s", sessionID)
}

func (s *analyticsService) TrackInteraction(sessionID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		log.Warnf("Analytics: 会话 %s 不存在，忽略该轮记录", sessionID)
		return
	}

	sess.messages = append(sess.messages, model.Interaction{
		Timestamp:    s.now(),
		UserMessage:  turn.UserMessage,
		SaraResponse: turn.Response,
		Intent:       turn.Intent,
		Methodology:  turn.Methodology,
		LeadScore:    turn.LeadScore,
		Stage:        turn.Stage,
		Cost:         turn.Cost,
	})
	sess.score = turn.LeadScore
	sess.stage = turn.Stage
	sess.cost += turn.Cost
	if turn.Intent != "" {
		sess.intents = append(sess.intents, turn.Intent)
	}
	if turn.Methodology != "" {
		sess.methodologies = append(sess.methodologies, turn.Methodology)
	}
	sess.lead = lead.UpdateProfile(sess.lead, turn.Extracted)
	log.Debugw("Analytics: 记录一轮对话", "session", sessionID, "score", sess.score, "stage", sess.stage)
}

func (s *analyticsService) EndSession(ctx context.Context, sessionID string, outcome model.Outcome) (*model.SessionMetrics, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		log.Warnf("Analytics: 结束会话时未找到 %s", sessionID)
		return nil, nil
	}

	record := sess.finalize(s.now(), outcome)
	metrics := record.Metrics()
	if err := s.sink.Publish(ctx, record); err != nil {
		// 归档失败时放回注册表，便于重试；期间若同 ID 已重新开始则保留新会话
		s.mu.Lock()
		if _, taken := s.sessions[sessionID]; !taken {
			s.sessions[sessionID] = sess
		}
		s.mu.Unlock()
		return &metrics, fmt.Errorf("failed to publish session %s: %w", sessionID, err)
	}
	log.Infof("Analytics: 会话结束 %s | outcome=%s | score=%d/4", sessionID, outcome, metrics.LeadScore)
	return &metrics, nil
}

// finalize 计算会话指标并生成归档记录。
func (t *trackedSession) finalize(end time.Time, outcome model.Outcome) model.SessionRecord {
	if outcome == "" {
		outcome = model.OutcomeUnknown
	}
	projectType := string(t.lead.ProjectType)
	if projectType == "" {
		projectType = "unknown"
	}
	return model.SessionRecord{
		SessionID:           t.id,
		StartedAt:           t.start,
		EndedAt:             end,
		DurationMinutes:     end.Sub(t.start).Minutes(),
		MessageCount:        len(t.messages),
		LeadScore:           t.score,
		LeadQuality:         model.QualityForScore(t.score),
		DominantMethodology: dominantMethodology(t.methodologies),
		TotalCost:           t.cost,
		Outcome:             outcome,
		ProjectType:         projectType,
		HasEmail:            t.lead.Email != "",
		HasPhone:            t.lead.Phone != "",
		Intents:             distinctIntents(t.intents),
		Messages:            t.messages,
		LeadData:            t.lead,
		Metadata:            t.meta,
	}
}

// dominantMethodology 返回出现最多的方法论，次数相同时取较晚出现的那个。
func dominantMethodology(ms []model.Methodology) string {
	counts := make(map[model.Methodology]int)
	var order []model.Methodology
	for _, m := range ms {
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}
	best, bestCount := "unknown", 0
	for _, m := range order {
		if counts[m] >= bestCount {
			best, bestCount = string(m), counts[m]
		}
	}
	return best
}

func distinctIntents(intents []model.Intent) []model.Intent {
	seen := make(map[model.Intent]bool)
	out := make([]model.Intent, 0, len(intents))
	for _, i := range intents {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}

func (s *analyticsService) Stats(ctx context.Context) (model.GlobalStats, error) {
	return s.stats.Load(ctx)
}

// Dashboard 是仪表盘数据。
type Dashboard struct {
	Overview       DashboardOverview    `json:"overview"`
	Performance    DashboardPerformance `json:"performance"`
	LeadQuality    map[string]int       `json:"leadQuality"`
	Outcomes       map[string]int       `json:"outcomes"`
	TopMethodology string               `json:"topMethodology"`
	TopProjectType string               `json:"topProjectType"`
	ROI            ROI                  `json:"roi"`
}

type DashboardOverview struct {
	TotalConversations int    `json:"totalConversations"`
	TotalMessages      int    `json:"totalMessages"`
	ConversionRate     string `json:"conversionRate"`
	AvgLeadScore       string `json:"avgLeadScore"`
}

type DashboardPerformance struct {
	AvgMessagesPerSession string `json:"avgMessagesPerSession"`
	AvgDuration           string `json:"avgDuration"`
	TotalCost             string `json:"totalCost"`
	CostPerLead           string `json:"costPerLead"`
}

// ROI 是按平均客单价估算的投入产出。
type ROI struct {
	Conversions int    `json:"conversions"`
	Revenue     string `json:"revenue"`
	Cost        string `json:"cost"`
	ROI         string `json:"roi"`
	Profit      string `json:"profit"`
}

func (s *analyticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	stats, err := s.stats.Load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return s.dashboard(stats), nil
}

func (s *analyticsService) dashboard(stats model.GlobalStats) Dashboard {
	costPerLead := "$0.00"
	if stats.TotalSessions > 0 {
		costPerLead = fmt.Sprintf("$%.2f", stats.TotalCost/float64(stats.TotalSessions))
	}
	return Dashboard{
		Overview: DashboardOverview{
			TotalConversations: stats.TotalSessions,
			TotalMessages:      stats.TotalMessages,
			ConversionRate:     fmt.Sprintf("%.1f%%", stats.ConversionRate),
			AvgLeadScore:       fmt.Sprintf("%.1f/4", stats.AvgLeadScore),
		},
		Performance: DashboardPerformance{
			AvgMessagesPerSession: fmt.Sprintf("%.1f", stats.AvgMessagesPerSession),
			AvgDuration:           fmt.Sprintf("%.1f min", stats.AvgDuration),
			TotalCost:             fmt.Sprintf("$%.2f", stats.TotalCost),
			CostPerLead:           costPerLead,
		},
		LeadQuality: map[string]int{
			string(model.QualityHot):  stats.LeadsByQuality[string(model.QualityHot)],
			string(model.QualityWarm): stats.LeadsByQuality[string(model.QualityWarm)],
			string(model.QualityCold): stats.LeadsByQuality[string(model.QualityCold)],
		},
		Outcomes: map[string]int{
			string(model.OutcomeConverted): stats.Outcomes[string(model.OutcomeConverted)],
			string(model.OutcomeNurturing): stats.Outcomes[string(model.OutcomeNurturing)],
			string(model.OutcomeLost):      stats.Outcomes[string(model.OutcomeLost)],
		},
		TopMethodology: topItem(stats.Methodologies),
		TopProjectType: topItem(stats.ProjectTypes),
		ROI:            s.roi(stats),
	}
}

// topItem 返回计数最大的键，并列时取字典序较小者。
func topItem(counts map[string]int) string {
	if len(counts) == 0 {
		return "N/A"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func (s *analyticsService) ROI(ctx context.Context) (ROI, error) {
	stats, err := s.stats.Load(ctx)
	if err != nil {
		return ROI{}, err
	}
	return s.roi(stats), nil
}

func (s *analyticsService) roi(stats model.GlobalStats) ROI {
	conversions := stats.Outcomes[string(model.OutcomeConverted)]
	revenue := float64(conversions) * s.opts.AvgTicketBRL
	cost := stats.TotalCost * s.opts.USDToBRL
	pct := 0.0
	if cost > 0 {
		pct = (revenue - cost) / cost * 100
	}
	return ROI{
		Conversions: conversions,
		Revenue:     "R$ " + formatBRL(revenue),
		Cost:        fmt.Sprintf("R$ %.2f", cost),
		ROI:         fmt.Sprintf("%.0f%%", pct),
		Profit:      "R$ " + formatBRL(revenue-cost),
	}
}

// formatBRL 按 pt-BR 习惯格式化金额：千位用点，小数用逗号，最多两位小数。
func formatBRL(v float64) string {
	neg := v < 0
	v = math.Round(math.Abs(v)*100) / 100
	whole := int64(v)
	cents := int64(math.Round((v - float64(whole)) * 100))

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	if neg && (whole > 0 || cents > 0) {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if cents > 0 {
		frac := strings.TrimRight(fmt.Sprintf("%02d", cents), "0")
		b.WriteString("," + frac)
	}
	return b.String()
}

// Report 是完整的绩效报告。
type Report struct {
	GeneratedAt      time.Time         `json:"generatedAt"`
	Period           ReportPeriod      `json:"period"`
	Summary          Dashboard         `json:"summary"`
	Highlights       ReportHighlights  `json:"highlights"`
	TopConversations []TopConversation `json:"topConversations"`
}

type ReportPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ReportHighlights struct {
	BestConversions          int    `json:"bestConversions"`
	HotLeadsPercentage       string `json:"hotLeadsPercentage"`
	MostEffectiveMethodology string `json:"mostEffectiveMethodology"`
	AvgCostPerConversion     string `json:"avgCostPerConversion"`
}

type TopConversation struct {
	ID          string        `json:"id"`
	Date        time.Time     `json:"date"`
	LeadScore   string        `json:"leadScore"`
	Duration    string        `json:"duration"`
	Outcome     model.Outcome `json:"outcome"`
	ProjectType string        `json:"projectType"`
}

func (s *analyticsService) Report(ctx context.Context) (Report, error) {
	stats, err := s.stats.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	records, err := s.records.ListRecent(ctx, recentConversations)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list recent sessions: %w", err)
	}
	dashboard := s.dashboard(stats)

	period := ReportPeriod{Start: "N/A", End: "N/A"}
	if len(records) > 0 {
		period.Start = records[len(records)-1].StartedAt.Format(time.RFC3339)
		period.End = records[0].StartedAt.Format(time.RFC3339)
	}

	top := make([]model.SessionRecord, 0, len(records))
	for _, r := range records {
		if r.LeadScore >= 3 {
			top = append(top, r)
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].LeadScore > top[j].LeadScore })
	if len(top) > 5 {
		top = top[:5]
	}

	hotPct := "0%"
	if stats.TotalSessions > 0 {
		hotPct = fmt.Sprintf("%.1f%%", float64(stats.LeadsByQuality[string(model.QualityHot)])/float64(stats.TotalSessions)*100)
	}
	avgCostPerConversion := "N/A"
	if converted := stats.Outcomes[string(model.OutcomeConverted)]; converted > 0 {
		avgCostPerConversion = fmt.Sprintf("$%.2f", stats.TotalCost/float64(converted))
	}

	report := Report{
		GeneratedAt: s.now(),
		Period:      period,
		Summary:     dashboard,
		Highlights: ReportHighlights{
			BestConversions:          len(top),
			HotLeadsPercentage:       hotPct,
			MostEffectiveMethodology: dashboard.TopMethodology,
			AvgCostPerConversion:     avgCostPerConversion,
		},
		TopConversations: make([]TopConversation, 0, len(top)),
	}
	for _, r := range top {
		report.TopConversations = append(report.TopConversations, TopConversation{
			ID:          r.SessionID,
			Date:        r.StartedAt,
			LeadScore:   fmt.Sprintf("%d/4", r.LeadScore),
			Duration:    fmt.Sprintf("%.1f min", r.DurationMinutes),
			Outcome:     r.Outcome,
			ProjectType: r.ProjectType,
		})
	}
	return report, nil
}

// Close 以 unknown 结果结束所有仍在进行的会话。
func (s *analyticsService) Close(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if _, err := s.EndSession(ctx, id, model.OutcomeUnknown); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if len(ids) > 0 {
		log.Infof("Analytics: 关闭时结束了 %d 个进行中的会话", len(ids))
	}
	return firstErr
}

// SessionIndexer 把会话写入检索引擎。
type SessionIndexer interface {
	Index(ctx context.Context, doc model.SessionDocument) error
}

// SessionArchiver 保存会话记录、写入检索索引并更新全局统计。
// 它既是 Kafka 消费者的处理器，也可在未启用 Kafka 时直接作为 SessionSink。
type SessionArchiver struct {
	records repository.SessionRecordRepository
	index   SessionIndexer
	stats   repository.StatsRepository

	mu sync.Mutex
}

// NewSessionArchiver 创建归档器，index 可以为 nil。
func NewSessionArchiver(records repository.SessionRecordRepository, index SessionIndexer, stats repository.StatsRepository) *SessionArchiver {
	return &SessionArchiver{records: records, index: index, stats: stats}
}

// Publish 直接归档。
func (a *SessionArchiver) Publish(ctx context.Context, record model.SessionRecord) error {
	return a.Process(ctx, record)
}

// Process 归档一条会话。检索索引失败只记录日志。
func (a *SessionArchiver) Process(ctx context.Context, record model.SessionRecord) error {
	if err := a.records.Save(ctx, &record); err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}
	if a.index != nil {
		if err := a.index.Index(ctx, model.NewSessionDocument(record)); err != nil {
			log.Errorf("会话写入检索索引失败: session=%s, err=%v", record.SessionID, err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	stats, err := a.stats.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load global stats: %w", err)
	}
	ApplySession(&stats, record.Metrics())
	stats.LastUpdated = time.Now()
	if err := a.stats.Save(ctx, stats); err != nil {
		return fmt.Errorf("failed to save global stats: %w", err)
	}
	return nil
}

// ApplySession 把一个已结束会话的指标累加到全局统计。
func ApplySession(stats *model.GlobalStats, m model.SessionMetrics) {
	if stats.LeadsByQuality == nil || stats.Outcomes == nil || stats.Methodologies == nil || stats.ProjectTypes == nil {
		fresh := model.NewGlobalStats()
		for _, pair := range []struct{ dst, src *map[string]int }{
			{&stats.LeadsByQuality, &fresh.LeadsByQuality},
			{&stats.Outcomes, &fresh.Outcomes},
			{&stats.Methodologies, &fresh.Methodologies},
			{&stats.ProjectTypes, &fresh.ProjectTypes},
		} {
			if *pair.dst == nil {
				*pair.dst = *pair.src
			}
		}
	}

	stats.TotalSessions++
	stats.TotalMessages += m.MessageCount
	stats.TotalCost += m.TotalCost
	stats.LeadsByQuality[string(m.LeadQuality)]++
	stats.Outcomes[string(m.Outcome)]++
	stats.Methodologies[m.DominantMethodology]++
	if m.ProjectType != "" && m.ProjectType != "unknown" {
		stats.ProjectTypes[m.ProjectType]++
	}

	n := float64(stats.TotalSessions)
	stats.AvgLeadScore = (stats.AvgLeadScore*(n-1) + float64(m.LeadScore)) / n
	stats.AvgMessagesPerSession = float64(stats.TotalMessages) / n
	stats.AvgDuration = (stats.AvgDuration*(n-1) + m.DurationMinutes) / n
	if converted := stats.Outcomes[string(model.OutcomeConverted)]; converted > 0 {
		stats.ConversionRate = float64(converted) / n * 100
	}
}
