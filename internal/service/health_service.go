package service

import (
	"context"
	"time"

	"hotel-insights-go/internal/repository"
)

// 健康状态
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// HealthDependencies 描述各依赖的状态。
type HealthDependencies struct {
	Database    string `json:"database"`
	VectorStore string `json:"vector_store"`
	QAChain     string `json:"qa_chain"`
}

// HealthIndex 描述当前快照。
type HealthIndex struct {
	Version  uint64     `json:"version"`
	Insights int        `json:"insights"`
	BuiltAt  *time.Time `json:"built_at"`
}

// HealthReport 是 /health 的响应体。
type HealthReport struct {
	Status       string             `json:"status"`
	Dependencies HealthDependencies `json:"dependencies"`
	Index        HealthIndex        `json:"index"`
}

// HealthService 汇总依赖状态。
type HealthService interface {
	Check(ctx context.Context) HealthReport
}

type healthService struct {
	bookingRepo    repository.BookingRepository
	insightService InsightService
}

// NewHealthService 创建一个新的 HealthService 实例。
func NewHealthService(bookingRepo repository.BookingRepository, insightService InsightService) HealthService {
	return &healthService{bookingRepo: bookingRepo, insightService: insightService}
}

func (s *healthService) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		Status: HealthOK,
		Dependencies: HealthDependencies{
			Database:    "Connected",
			VectorStore: "initialized",
			QAChain:     "initialized",
		},
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.bookingRepo.Ping(pingCtx); err != nil {
		report.Status = HealthDegraded
		report.Dependencies.Database = "Not Connected: " + err.Error()
	}

	snap := s.insightService.Current()
	if snap == nil || snap.Index == nil {
		report.Status = HealthDegraded
		report.Dependencies.VectorStore = "not initialized"
	}
	if snap == nil || snap.Chain == nil {
		report.Status = HealthDegraded
		report.Dependencies.QAChain = "not initialized"
	}
	if snap != nil {
		builtAt := snap.BuiltAt
		report.Index = HealthIndex{Version: snap.Version, Insights: len(snap.Insights), BuiltAt: &builtAt}
	}
	return report
}
