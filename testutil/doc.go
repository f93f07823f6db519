// Copyright (c) MemFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 MemFlow 测试的共享工具和辅助函数。

# 概述

testutil 为各记忆后端与上层组件的测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 数据辅助: SeedEntries / Keys / SortedKeys / MustJSON / MustParseJSON
  - 断言工具: AssertKeys / AssertEventuallyTrue / WaitFor
  - 一致性测试: RunMemoryConformance 对任意 memory.Memory 实现运行
    Get/Store/List/Forget/Count/Recall 的公共约定

# 子包

  - testutil/mocks: MockMemory，支持 Builder 模式、错误注入与调用计数
  - testutil/fixtures: 样例记忆条目工厂

# 使用示例

	func TestStore_Conformance(t *testing.T) {
		testutil.RunMemoryConformance(t, func(t *testing.T) memory.Memory {
			return inmemory.New(inmemory.Config{}, zap.NewNop())
		})
	}
*/
package testutil
