// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package tiered 提供两级记忆缓存：进程内热层 + 委托的温层后端。

# 概述

Cache 包装任意 memory.Memory 后端，自身同样实现 memory.Memory，
因此可以透明地替换任何后端。热层是有界的分片并发索引，温层是
被包装的权威后端。

# 核心类型

  - Cache：分层缓存引擎，持有热层索引、LRU 队列、访问计数与统计。
  - Config：热层/温层容量、TTL、晋升与 LRU 开关。
  - Stats：统计快照，HitRate 为派生值，不存储。
  - CacheTier：命中层级（hot / warm / cold）。
  - Builder：链式构建 Cache。
  - Observer：缓存事件观察者，internal/metrics.Collector 实现了它。

# 行为约定

  - Store 先写穿后端，再（按配置）把新条目晋升到热层。
  - Get 先查热层，未命中则查后端并晋升。
  - Recall 先在热层做区分大小写的子串扫描，不足 limit 时向后端补足。
  - List / Count / HealthCheck 直接委托后端。
  - 淘汰按晋升顺序（队尾为最久未晋升），热层命中不会刷新位置。
  - HotTTL、WarmTTL、PromotionThreshold 仅声明，不参与淘汰与晋升。
  - 锁从不跨越后端 I/O，后端错误原样返回。
*/
package tiered
