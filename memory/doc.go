// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package memory 定义记忆持久化契约。

# 概述

Memory 接口是所有存储后端（SQL、连接池 SQL、Redis、MongoDB、内存）
以及分层缓存 tiered.Cache 共同实现的契约。调用方只依赖该接口，
后端可以在不改动缓存逻辑的前提下自由替换。

# 契约要点

  - 所有方法必须支持并发调用，同一 key 的冲突写入由实现内部串行化。
  - "未找到" 不是错误：Get 返回 nil，Recall/List 返回空切片，Forget 返回 false。
  - HealthCheck 只返回布尔值，从不返回错误。

# 辅助函数

  - BuildContext：按用户消息检索相关记忆并渲染为上下文前言。
*/
package memory
