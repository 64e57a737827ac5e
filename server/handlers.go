package server

import (
	"encoding/json"
	"net/http"

	"soundswap/core/domain"
	"soundswap/logger"
	"soundswap/model"

	"github.com/gorilla/mux"
)

// StatusHandler 状态接口处理器
type StatusHandler struct {
	board  *StatusBoard
	hub    *Hub
	rescan chan<- string
}

// NewStatusHandler rescan 为 nil 时重新扫描接口返回 503
func NewStatusHandler(board *StatusBoard, hub *Hub, rescan chan<- string) *StatusHandler {
	return &StatusHandler{board: board, hub: hub, rescan: rescan}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

// domainFromRequest 解析路径中的域名，未知时写 404
func domainFromRequest(w http.ResponseWriter, r *http.Request) (domain.Traits, bool) {
	name := mux.Vars(r)["domain"]
	traits, ok := domain.ByName(name)
	if !ok {
		http.Error(w, "Unknown domain", http.StatusNotFound)
		return domain.Traits{}, false
	}
	return traits, true
}

// ListDomainsHandler GET /api/domains
func (h *StatusHandler) ListDomainsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"domains": h.board.Summaries(),
	})
}

// DomainStatusHandler GET /api/domains/{domain}/status
func (h *StatusHandler) DomainStatusHandler(w http.ResponseWriter, r *http.Request) {
	traits, ok := domainFromRequest(w, r)
	if !ok {
		return
	}
	st, ok := h.board.Status(traits.Name)
	if !ok {
		http.Error(w, "Domain has not been synchronized yet", http.StatusNotFound)
		return
	}
	st.Catalog = nil
	writeJSON(w, http.StatusOK, st)
}

// DomainCatalogHandler GET /api/domains/{domain}/catalog
func (h *StatusHandler) DomainCatalogHandler(w http.ResponseWriter, r *http.Request) {
	traits, ok := domainFromRequest(w, r)
	if !ok {
		return
	}
	st, ok := h.board.Status(traits.Name)
	if !ok {
		http.Error(w, "Domain has not been synchronized yet", http.StatusNotFound)
		return
	}
	entries := st.Catalog
	if entries == nil {
		entries = []model.ProfileEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"domain":  traits.Name,
		"entries": entries,
	})
}

// RescanHandler POST /api/domains/{domain}/rescan，请求交给调度协程异步执行
func (h *StatusHandler) RescanHandler(w http.ResponseWriter, r *http.Request) {
	traits, ok := domainFromRequest(w, r)
	if !ok {
		return
	}
	if h.rescan == nil {
		http.Error(w, "Rescan is not available", http.StatusServiceUnavailable)
		return
	}

	select {
	case h.rescan <- traits.Name:
		logger.Info("重新扫描请求已排队", logger.String("domain", traits.Name))
		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "Rescan queued",
			"domain":  traits.Name,
		})
	default:
		http.Error(w, "A rescan is already pending", http.StatusTooManyRequests)
	}
}

// StatusWebSocketHandler ws /ws/status[?domain=sirens]
func (h *StatusHandler) StatusWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	filter := ""
	if name := r.URL.Query().Get("domain"); name != "" {
		traits, ok := domain.ByName(name)
		if !ok {
			http.Error(w, "Unknown domain", http.StatusNotFound)
			return
		}
		filter = traits.Name
	}

	var snapshot []model.DomainStatus
	for _, st := range h.board.Summaries() {
		if filter == "" || st.Domain == filter {
			snapshot = append(snapshot, st)
		}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		http.Error(w, "Failed to build snapshot", http.StatusInternalServerError)
		return
	}
	h.hub.serve(w, r, filter, []*WSMessage{{Type: MsgTypeSnapshot, Domain: filter, Data: data}})
}
