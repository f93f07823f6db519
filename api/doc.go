// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package api 定义 memflow HTTP 接口的请求与响应类型。

  - StoreRequest / StoreResponse：POST /v1/memories
  - ForgetResponse：DELETE /v1/memories/{key}
  - ListResponse：GET /v1/memories 与 GET /v1/memories/search
  - CountResponse：GET /v1/memories/count
  - StatsResponse：GET /v1/stats 与 /v1/stats/stream 的每一帧

处理器位于 api/handlers。
*/
package api
