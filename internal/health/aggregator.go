package health

import (
	"context"
	"sync"
	"time"
)

const defaultCheckTimeout = 3 * time.Second

// Aggregator 并发执行依赖检查并汇总。
// 可选依赖（Redis、库存巡检）失败时只把整体降级：没有 Redis 撤销仍可依赖行锁，
// 巡检过期也不影响换电提交。数据库不可用才使整体不可用。
type Aggregator struct {
	mu       sync.RWMutex
	checkers []Checker
	optional map[string]bool
	timeout  time.Duration
}

func NewAggregator(checkers ...Checker) *Aggregator {
	return &Aggregator{checkers: checkers, optional: map[string]bool{}, timeout: defaultCheckTimeout}
}

// AddChecker 添加必需依赖检查
func (a *Aggregator) AddChecker(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
}

// AddOptional 添加可选依赖检查
func (a *Aggregator) AddOptional(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
	a.optional[checker.Name()] = true
}

// CheckAll 执行所有检查，单项超时由 ctx 控制
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			res := c.Check(cctx)
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

func (a *Aggregator) OverallStatus(ctx context.Context) Status {
	return a.overall(a.CheckAll(ctx))
}

// Report 执行全部检查并生成报告
func (a *Aggregator) Report(ctx context.Context) HealthReport {
	results := a.CheckAll(ctx)
	return HealthReport{
		Status:    a.overall(results),
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}

func (a *Aggregator) overall(results map[string]CheckResult) Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	status := StatusHealthy
	for name, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			if !a.optional[name] {
				return StatusUnhealthy
			}
			status = StatusDegraded
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Ready 降级仍可接收换电请求
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.OverallStatus(ctx) != StatusUnhealthy
}

// Alive 进程能响应即存活
func (a *Aggregator) Alive() bool {
	return true
}

// HealthReport 健康报告
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}
