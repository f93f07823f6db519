// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

// Package tlsutil 集中提供 TLS 设置（TLS 1.2+，仅 AEAD 套件），
// 供嵌入提供者的 HTTP 客户端与 Redis 连接使用。
package tlsutil
