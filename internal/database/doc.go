// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
包 database 负责打开 GORM 连接并管理连接池，供 SQL 记忆后端使用。

# 概述

Open 根据驱动名选择方言（postgres、mysql、sqlite、sqlite3）并建立
连接。PoolManager 封装 database/sql 的连接池配置，提供健康检查、
统计回调与带退避的事务重试。

# 核心类型

  - PoolManager：连接池管理器，提供 DB()、Ping()、Stats()、Close()。
  - PoolConfig：连接池配置，Validate 校验上下限。
  - PoolStats：友好格式的连接池统计信息，可通过 WithStatsHook 导出。
  - TransactionFunc：事务回调函数类型。

# 方言

  - postgres：gorm.io/driver/postgres
  - mysql：gorm.io/driver/mysql
  - sqlite：github.com/glebarez/sqlite（纯 Go，无需 cgo）
  - sqlite3：gorm.io/driver/sqlite（cgo）
*/
package database
