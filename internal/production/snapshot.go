package production

// Snapshot 聚合的可序列化形态，用于本地槽位与报表
type Snapshot struct {
	Run      *Run      `json:"run,omitempty"`
	Partials []Partial `json:"partials"`
}

// Empty 是否为空快照（无活动批次）
func (s Snapshot) Empty() bool { return s.Run == nil }

// Snapshot 导出当前状态
func (a *Aggregate) Snapshot() Snapshot {
	c := a.Clone()
	s := Snapshot{Run: c.run, Partials: c.partials}
	if s.Partials == nil {
		s.Partials = []Partial{}
	}
	return s
}

// FromSnapshot 由快照恢复聚合；没有批次（或批次标识为空）的快照恢复为空状态
func FromSnapshot(s Snapshot) Aggregate {
	if s.Run == nil || s.Run.ID == "" {
		return Aggregate{}
	}
	r := *s.Run
	a := Aggregate{run: &r}
	if len(s.Partials) > 0 {
		a.partials = make([]Partial, len(s.Partials))
		copy(a.partials, s.Partials)
	}
	return a
}
