package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"soundswap/logger"

	"github.com/gorilla/mux"
)

// NewRouter 注册状态接口和 WebSocket 路由
func NewRouter(h *StatusHandler) *mux.Router {
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// API路由
	router.HandleFunc("/api/domains", h.ListDomainsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/domains/{domain}/status", h.DomainStatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/domains/{domain}/catalog", h.DomainCatalogHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/domains/{domain}/rescan", h.RescanHandler).Methods(http.MethodPost)

	router.HandleFunc("/ws/status", h.StatusWebSocketHandler)
	return router
}

// Serve 在 addr 上提供 handler，ctx 结束时优雅关闭
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	// 设置服务器超时
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("状态服务启动", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("正在关闭状态服务")
	// 创建一个5秒超时的上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("状态服务已停止")
	return nil
}
