package health

import "sync/atomic"

// Readiness 就绪状态聚合（数据库、业务服务）
type Readiness struct {
	dbReady       atomic.Bool
	servicesReady atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetDBReady(v bool)       { r.dbReady.Store(v) }
func (r *Readiness) SetServicesReady(v bool) { r.servicesReady.Store(v) }

// Ready 总体就绪：各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.dbReady.Load() && r.servicesReady.Load()
}
