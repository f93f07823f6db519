// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 memflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 memory、embedding、
api 等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - MemoryEntry：单条记忆（ID、Key、Content、Category、Timestamp）
  - MemoryCategory：记忆分类（core / daily / conversation / 自定义）
  - Error / ErrorCode：结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记

# 主要能力

  - 分类解析：ParseCategory / CustomCategory
  - 条目构造：NewMemoryEntry（分配 uuid 与 RFC 3339 时间戳）
  - 错误工具链：NewError / WithCause / IsRetryable / GetErrorCode
*/
package types
