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

// RegisterSensorRoutes 注册采集与实时读取路由
func (r *Router) RegisterSensorRoutes(h *SensorHandler) {
	r.Handle("/sensor/data/report", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Report(w, req)
	})

	r.Handle("/sensor/data/realtime", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Realtime(w, req)
	})

	r.Handle("/sensor/data/history", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.History(w, req)
	})
}

// RegisterAlertRoutes 注册报警记录路由
func (r *Router) RegisterAlertRoutes(h *AlertLogHandler) {
	r.Handle("/sensor/alert/logs", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, req)
	})

	// /sensor/alert/logs/{id}/resolve
	r.Handle("/sensor/alert/logs/", func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path
		if strings.HasSuffix(path, "/resolve") && req.Method == http.MethodPut {
			id := strings.TrimSuffix(path, "/resolve")
			id = strings.TrimPrefix(id, "/sensor/alert/logs/")
			if id != "" && !strings.Contains(id, "/") {
				h.Resolve(w, req, id)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
}
