// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
包 cache 封装 go-redis 客户端，为 Redis 记忆后端提供连接管理与
基础命令。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Get/GetJSON/MGet、有序集合与
    集合辅助方法 ZRange/ZCard/ZRem/SMembers，以及乐观事务 Watch。
  - Config：地址、密码、DB、连接池、TLS 与健康检查间隔。

# 行为

  - 启用 TLS 时使用 tlsutil 的安全默认配置。
  - HealthCheckInterval 大于零时后台定时 Ping，失败只记录日志。
  - Watch 在被监视的 key 提交前被改动时整体重试，次数耗尽返回
    ErrTxConflict。
  - Close 之后的调用返回 ErrClosed；键不存在返回 ErrCacheMiss，
    可用 IsCacheMiss 判断。
*/
package cache
