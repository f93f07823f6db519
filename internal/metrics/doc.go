// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、记忆后端、分层缓存、Embedding 与数据库连接池。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，所有指标按 namespace 隔离。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 记忆操作指标：按 backend/operation/status 统计后端调用次数与耗时。
  - 分层缓存指标：CacheObserver 返回 tiered.Observer，记录按层命中、
    未命中、淘汰与晋升，以及热层大小 Gauge。
  - Embedding 指标：InstrumentProvider 包装 embedding.Provider，
    按 provider/status 统计请求。
  - 数据库指标：活跃/空闲连接数 Gauge，由连接池健康检查回调写入。
*/
package metrics
