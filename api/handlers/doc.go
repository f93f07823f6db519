// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 实现 memflow HTTP 接口的处理器。

  - MemoryHandler：/v1/memories 的写入、读取、删除、列表、检索与计数
  - StatsHandler：/v1/stats 快照与 /v1/stats/stream websocket 推送
  - HealthHandler：/health 存活探针与 /ready 就绪检查

响应统一为 Response{success, data, error, timestamp, request_id}。
非 types.Error 的后端错误映射为 503 BACKEND_FAILURE，
未找到的记忆返回 404 NOT_FOUND。
*/
package handlers
