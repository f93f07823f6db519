package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/memflow/api"
	"github.com/BaSui01/memflow/memory"
	"github.com/BaSui01/memflow/types"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
	maxKeyLength       = 255
)

// =============================================================================
// 🧠 记忆 Handler
// =============================================================================

// MemoryHandler 记忆 CRUD 与检索
type MemoryHandler struct {
	mem    memory.Memory
	logger *zap.Logger
}

// NewMemoryHandler 创建记忆处理器
func NewMemoryHandler(mem memory.Memory, logger *zap.Logger) *MemoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryHandler{
		mem:    mem,
		logger: logger.With(zap.String("component", "memory_handler")),
	}
}

// Register 挂载路由；search 与 count 比 {key} 更具体，优先匹配
func (h *MemoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/memories", h.HandleStore)
	mux.HandleFunc("GET /v1/memories", h.HandleList)
	mux.HandleFunc("GET /v1/memories/search", h.HandleSearch)
	mux.HandleFunc("GET /v1/memories/count", h.HandleCount)
	mux.HandleFunc("GET /v1/memories/{key}", h.HandleGet)
	mux.HandleFunc("DELETE /v1/memories/{key}", h.HandleForget)
}

// HandleStore POST /v1/memories
func (h *MemoryHandler) HandleStore(w http.ResponseWriter, r *http.Request) {
	var req api.StoreRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if err := validateKey(req.Key); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "content is required", h.logger)
		return
	}

	category := types.CategoryCore
	if req.Category != "" {
		category = types.ParseCategory(req.Category)
	}

	if err := h.mem.Store(r.Context(), req.Key, req.Content, category); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteStatus(w, r, http.StatusCreated, api.StoreResponse{Key: req.Key})
}

// HandleGet GET /v1/memories/{key}
func (h *MemoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := validateKey(key); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	entry, err := h.mem.Get(r.Context(), key)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if entry == nil {
		WriteErrorMessage(w, r, http.StatusNotFound, types.ErrNotFound, "memory not found: "+key, h.logger)
		return
	}
	WriteSuccess(w, r, entry)
}

// HandleForget DELETE /v1/memories/{key}
func (h *MemoryHandler) HandleForget(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := validateKey(key); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	removed, err := h.mem.Forget(r.Context(), key)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.ForgetResponse{Key: key, Removed: removed})
}

// HandleList GET /v1/memories?category=
func (h *MemoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var category *types.MemoryCategory
	if c := r.URL.Query().Get("category"); c != "" {
		parsed := types.ParseCategory(c)
		category = &parsed
	}

	entries, err := h.mem.List(r.Context(), category)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if entries == nil {
		entries = []types.MemoryEntry{}
	}
	WriteSuccess(w, r, api.ListResponse{Entries: entries, Total: len(entries)})
}

// HandleSearch GET /v1/memories/search?q=&limit=
func (h *MemoryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "query parameter q is required", h.logger)
		return
	}

	limit := defaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest,
				"limit must be an integer between 1 and "+strconv.Itoa(maxSearchLimit), h.logger)
			return
		}
		limit = n
	}

	entries, err := h.mem.Recall(r.Context(), query, limit)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if entries == nil {
		entries = []types.MemoryEntry{}
	}
	WriteSuccess(w, r, api.ListResponse{Entries: entries, Total: len(entries)})
}

// HandleCount GET /v1/memories/count
func (h *MemoryHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.mem.Count(r.Context())
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.CountResponse{Count: n})
}

func validateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return types.NewError(types.ErrInvalidRequest, "key is required")
	case len(key) > maxKeyLength:
		return types.NewError(types.ErrInvalidRequest, "key exceeds "+strconv.Itoa(maxKeyLength)+" bytes")
	default:
		return nil
	}
}
