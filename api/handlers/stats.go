package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/api"
	"github.com/BaSui01/memflow/memory/tiered"
	"github.com/BaSui01/memflow/types"
)

const (
	defaultStreamInterval = time.Second
	minStreamInterval     = 100 * time.Millisecond
	maxStreamInterval     = time.Minute
	streamWriteTimeout    = 5 * time.Second
)

// =============================================================================
// 📊 统计 Handler
// =============================================================================

// StatsHandler 分层缓存统计与实时推送
type StatsHandler struct {
	cache   *tiered.Cache
	backend string
	logger  *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewStatsHandler 创建统计处理器；cache 为 nil 表示未启用分层缓存
func NewStatsHandler(cache *tiered.Cache, backend string, logger *zap.Logger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsHandler{
		cache:   cache,
		backend: backend,
		logger:  logger.With(zap.String("component", "stats_handler")),
		done:    make(chan struct{}),
	}
}

// Close 通知所有推送连接以正常关闭码结束，可重复调用
func (h *StatsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Register 挂载路由
func (h *StatsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/stats", h.HandleStats)
	mux.HandleFunc("GET /v1/stats/stream", h.HandleStream)
}

// HandleStats GET /v1/stats：统计快照，温层大小通过后端 Count 采样
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		WriteSuccess(w, r, api.NewStatsResponse(h.backend, false, tiered.Stats{}))
		return
	}

	stats, err := h.cache.Snapshot(r.Context())
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.NewStatsResponse(h.backend, true, stats))
}

// HandleStream GET /v1/stats/stream?interval=：升级为 websocket，按间隔推送统计帧
func (h *StatsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	interval, err := parseInterval(r.URL.Query().Get("interval"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// 客户端不发送数据；CloseRead 在对端关闭时取消 ctx
	ctx := conn.CloseRead(r.Context())

	h.logger.Debug("stats stream opened", zap.Duration("interval", interval))
	err = h.stream(ctx, conn, interval)

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		_ = conn.Close(websocket.StatusNormalClosure, "")
	case websocket.CloseStatus(err) != -1:
		// 对端已关闭
	default:
		h.logger.Warn("stats stream aborted", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "stream aborted")
	}
}

func (h *StatsHandler) stream(ctx context.Context, conn *websocket.Conn, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := h.writeFrame(ctx, conn); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.done:
			return nil
		case <-ticker.C:
		}
	}
}

func (h *StatsHandler) writeFrame(ctx context.Context, conn *websocket.Conn) error {
	frame := api.NewStatsResponse(h.backend, h.cache != nil, tiered.Stats{})
	if h.cache != nil {
		frame = api.NewStatsResponse(h.backend, true, h.cache.Stats())
	}

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, frame)
}

func parseInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return defaultStreamInterval, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < minStreamInterval || d > maxStreamInterval {
		return 0, types.NewError(types.ErrInvalidRequest,
			"interval must be a duration between "+minStreamInterval.String()+" and "+maxStreamInterval.String())
	}
	return d, nil
}
