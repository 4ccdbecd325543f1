package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterUplinkRoutes 注册硬件上行和仪表盘查询路由
func (r *Router) RegisterUplinkRoutes(u *UplinkHandler) {
	r.Handle("/api/v1/bins", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u.GetBins(w, req)
	})

	// bins/{id}/telemetry
	r.Handle("/api/v1/bins/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/bins/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "telemetry" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		u.History(w, req, parts[0])
	})

	r.Handle("/api/v1/register", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u.Register(w, req)
	})

	r.Handle("/api/v1/update", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u.Update(w, req)
	})
}

// RegisterStreamRoutes 注册观察者实时通道
func (r *Router) RegisterStreamRoutes(s *StreamHandler) {
	r.Handle("/api/v1/stream", s.ServeStream)
}

// RegisterHealthRoutes 存活探针
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
