package config

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🔄 配置热重载
// =============================================================================

// ConfigChange 单个字段的变更记录
type ConfigChange struct {
	Timestamp       time.Time `json:"timestamp"`
	Source          string    `json:"source"`
	Path            string    `json:"path"`
	OldValue        any       `json:"old_value,omitempty"`
	NewValue        any       `json:"new_value,omitempty"`
	RequiresRestart bool      `json:"requires_restart"`
}

// ReloadCallback 配置应用后的回调
type ReloadCallback func(oldConfig, newConfig *Config)

// reloadableFields 运行时即可生效的字段，其余变更需要重启
var reloadableFields = map[string]bool{
	"Log.Level":             true,
	"Server.RateLimitRPS":   true,
	"Server.RateLimitBurst": true,
	"Telemetry.SampleRate":  true,
}

var sensitiveFieldMarkers = []string{"password", "apikey", "api_key", "secret", "token", "uri"}

// Reloader 监听配置文件并在变更时应用新配置
type Reloader struct {
	mu sync.RWMutex

	config  *Config
	version int
	loader  *Loader
	path    string

	callbacks []ReloadCallback
	changeLog []ConfigChange
	maxLog    int

	watcher *FileWatcher
	logger  *zap.Logger
}

// ReloaderOption 配置 Reloader
type ReloaderOption func(*Reloader)

// WithReloadLogger 设置日志记录器
func WithReloadLogger(logger *zap.Logger) ReloaderOption {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReloadLoader 设置重载时使用的加载器
func WithReloadLoader(l *Loader) ReloaderOption {
	return func(r *Reloader) {
		if l != nil {
			r.loader = l
		}
	}
}

// NewReloader 创建热重载器，path 为空时只能通过 ApplyConfig 更新
func NewReloader(cfg *Config, path string, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		config:  cloneConfig(cfg),
		version: 1,
		path:    path,
		maxLog:  500,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.loader == nil {
		r.loader = NewLoader()
	}
	r.loader.WithConfigPath(path)
	r.logger = r.logger.With(zap.String("component", "config_reloader"))
	return r
}

// OnReload 注册回调
func (r *Reloader) OnReload(cb ReloadCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Start 启动文件监听
func (r *Reloader) Start(ctx context.Context, opts ...WatcherOption) error {
	if r.path == "" {
		return fmt.Errorf("no config path set")
	}

	opts = append([]WatcherOption{WithWatcherLogger(r.logger), WithDebounceDelay(500 * time.Millisecond)}, opts...)
	watcher, err := NewFileWatcher([]string{r.path}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	watcher.OnChange(func(event FileEvent) {
		if event.Op == FileOpRemove {
			r.logger.Warn("config file removed, keeping current config", zap.String("path", event.Path))
			return
		}
		if err := r.Reload(); err != nil {
			r.logger.Error("failed to reload configuration", zap.Error(err))
		}
	})
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.watcher = watcher
	r.mu.Unlock()
	return nil
}

// Stop 停止文件监听
func (r *Reloader) Stop() error {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}

// Reload 重新加载配置文件并应用
func (r *Reloader) Reload() error {
	cfg, err := r.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return r.ApplyConfig(cfg, "file")
}

// ApplyConfig 验证并应用新配置；回调 panic 时回滚到旧配置
func (r *Reloader) ApplyConfig(newConfig *Config, source string) error {
	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	r.mu.Lock()
	oldConfig := r.config
	changes := diffConfig(oldConfig, newConfig)
	if len(changes) == 0 {
		r.mu.Unlock()
		return nil
	}

	now := time.Now()
	requiresRestart := false
	for i := range changes {
		changes[i].Timestamp = now
		changes[i].Source = source
		if changes[i].RequiresRestart {
			requiresRestart = true
		}
		r.logChange(changes[i])
	}

	applied := cloneConfig(newConfig)
	r.config = applied
	r.version++
	r.changeLog = append(r.changeLog, changes...)
	if len(r.changeLog) > r.maxLog {
		r.changeLog = r.changeLog[len(r.changeLog)-r.maxLog:]
	}
	callbacks := make([]ReloadCallback, len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	if err := notifySafe(callbacks, oldConfig, applied); err != nil {
		r.mu.Lock()
		if r.config == applied {
			r.config = oldConfig
			r.version++
			r.logger.Error("reload callback failed, rolled back", zap.Error(err))
		}
		r.mu.Unlock()
		return fmt.Errorf("config applied but callback failed: %w", err)
	}

	if requiresRestart {
		r.logger.Warn("some configuration changes require restart to take effect")
	}
	r.logger.Info("configuration reloaded",
		zap.Int("changes", len(changes)),
		zap.Int("version", r.Version()))
	return nil
}

// Current 返回当前配置副本
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneConfig(r.config)
}

// Version 返回当前配置版本，每次应用或回滚递增
func (r *Reloader) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Changes 返回最近 limit 条变更，limit<=0 返回全部
func (r *Reloader) Changes(limit int) []ConfigChange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.changeLog) {
		limit = len(r.changeLog)
	}
	out := make([]ConfigChange, limit)
	copy(out, r.changeLog[len(r.changeLog)-limit:])
	return out
}

func (r *Reloader) logChange(c ConfigChange) {
	fields := []zap.Field{
		zap.String("path", c.Path),
		zap.String("source", c.Source),
		zap.Bool("requires_restart", c.RequiresRestart),
	}
	if !isSensitive(c.Path) {
		fields = append(fields, zap.Any("old_value", c.OldValue), zap.Any("new_value", c.NewValue))
	}
	r.logger.Info("configuration changed", fields...)
}

func notifySafe(callbacks []ReloadCallback, oldConfig, newConfig *Config) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("callback panicked: %v", rec)
		}
	}()
	for _, cb := range callbacks {
		cb(oldConfig, newConfig)
	}
	return nil
}

// =============================================================================
// 🔍 变更检测与脱敏
// =============================================================================

// diffConfig 逐字段比较，敏感字段的值被替换
func diffConfig(oldConfig, newConfig *Config) []ConfigChange {
	var changes []ConfigChange
	compareStructs("", reflect.ValueOf(oldConfig).Elem(), reflect.ValueOf(newConfig).Elem(), &changes)
	return changes
}

func compareStructs(prefix string, oldVal, newVal reflect.Value, changes *[]ConfigChange) {
	t := oldVal.Type()
	for i := 0; i < oldVal.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}

		oldField, newField := oldVal.Field(i), newVal.Field(i)
		if oldField.Kind() == reflect.Struct {
			compareStructs(path, oldField, newField, changes)
			continue
		}
		if reflect.DeepEqual(oldField.Interface(), newField.Interface()) {
			continue
		}

		change := ConfigChange{
			Path:            path,
			OldValue:        oldField.Interface(),
			NewValue:        newField.Interface(),
			RequiresRestart: !reloadableFields[path],
		}
		if isSensitive(path) {
			change.OldValue = "[REDACTED]"
			change.NewValue = "[REDACTED]"
		}
		*changes = append(*changes, change)
	}
}

func isSensitive(path string) bool {
	name := strings.ToLower(path[strings.LastIndex(path, ".")+1:])
	for _, marker := range sensitiveFieldMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Sanitized 返回脱敏后的配置视图
func (c *Config) Sanitized() map[string]any {
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	redact(out)
	return out
}

func redact(data map[string]any) {
	for key, value := range data {
		if nested, ok := value.(map[string]any); ok {
			redact(nested)
			continue
		}
		if s, ok := value.(string); ok && s != "" && isSensitive(key) {
			data[key] = "[REDACTED]"
		}
	}
}

// cloneConfig 深拷贝配置
func cloneConfig(c *Config) *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := *c
	if c.Log.OutputPaths != nil {
		out.Log.OutputPaths = append([]string(nil), c.Log.OutputPaths...)
	}
	return &out
}
