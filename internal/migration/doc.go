// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package migration 管理 memories 表的版本化 Schema 迁移，基于 golang-migrate。

迁移文件按方言内嵌在 migrations/{postgres,mysql,sqlite} 下，命名为
NNNNNN_name.{up,down}.sql。DatabaseTypeSQLite 使用驱动名 "sqlite"，
调用方需要链接一个注册该名称的纯 Go 驱动；DatabaseTypeSQLite3 使用
cgo 驱动 "sqlite3"。

  - Migrator / DefaultMigrator：Up、Down、Steps、Goto、Force、Version、Status、Info
  - CLI：memflow migrate 子命令的终端输出
  - NewMigratorFromConfig：从 config.DatabaseConfig 构建连接串
*/
package migration
