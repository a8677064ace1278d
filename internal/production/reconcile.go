package production

// ── 远端快照对账（纯函数：旧聚合 + 远端快照 → 新聚合） ──
//
// 三路订阅之间没有先后保证，因此：
//   - 指针切换时先以占位批次接管新标识，后续到达的批次文档/班次快照按标识匹配写入；
//   - 标识不匹配的快照视为过期，直接丢弃。

// ReconcilePointer 处理当前批次指针变更
// runID 与本地一致时不变；为空时清空本地；否则以占位批次接管新标识
func ReconcilePointer(cur Aggregate, runID string) Aggregate {
	if runID == cur.ActiveID() {
		return cur.Clone()
	}
	if runID == "" {
		return Aggregate{}
	}
	return Aggregate{run: &Run{ID: runID}}
}

// ReconcileRun 处理批次文档变更；doc 为 nil 表示远端已删除，本地随之清空
func ReconcileRun(cur Aggregate, runID string, doc *Run) Aggregate {
	if runID == "" || cur.ActiveID() != runID {
		return cur.Clone()
	}
	if doc == nil {
		return Aggregate{}
	}

	next := cur.Clone()
	next.run.Flavor = doc.Flavor
	next.run.Format = doc.Format
	next.run.Target = doc.Target
	if !doc.CreatedAt.IsZero() {
		next.run.CreatedAt = doc.CreatedAt
	}
	if !doc.UpdatedAt.IsZero() {
		next.run.UpdatedAt = doc.UpdatedAt
	}
	return next
}

// ReconcilePartials 用远端班次列表整体替换本地列表（远端为准，不做合并）
func ReconcilePartials(cur Aggregate, runID string, partials []Partial) Aggregate {
	if runID == "" || cur.ActiveID() != runID {
		return cur.Clone()
	}

	next := cur.Clone()
	next.partials = make([]Partial, len(partials))
	copy(next.partials, partials)
	return next
}
