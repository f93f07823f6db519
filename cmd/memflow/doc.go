// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 MemFlow 服务端程序入口。

# 概述

cmd/memflow 是 MemFlow 的可执行入口，提供记忆 HTTP API、数据库迁移、
缓存统计查询、健康检查、配置查看和版本查询等子命令。程序支持 YAML
配置文件加载、结构化日志（zap）、Prometheus 指标采集、OpenTelemetry
追踪以及配置热重载。

# 核心类型

  - Server：组装记忆实例、API/Metrics 双端口服务与后台任务
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler
  - IPRateLimiter：基于 IP 的令牌桶限流，速率可热更新

# 主要能力

  - 子命令：serve、migrate、stats、health、config、version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、MetricsMiddleware、IPRateLimiter
  - 配置热重载：日志级别与限流参数无需重启即可生效
  - 优雅关闭：信号取消 ctx → 关闭推送连接与 HTTP 服务 → 释放后端 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
