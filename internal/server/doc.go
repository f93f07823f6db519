// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package server 管理 HTTP 监听的生命周期。

Manager 封装 net/http.Server，提供非阻塞 Start、阻塞式 Run 与
带超时的优雅关闭。包级 Run 基于 errgroup 同时运行 API 与 metrics
两个监听及若干后台任务，任一失败即取消其余。
*/
package server
