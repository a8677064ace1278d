package repository

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"prodline/internal/production"
	pkgerrors "prodline/pkg/errors"
	"prodline/pkg/slotstore"
)

// 本地槽位名
const (
	SlotRun       = "prodline_run_v1"
	SlotLastShift = "ui_last_shift"
)

var errRunIDMissing = errors.New("批次标识为空")

// Slots 本地槽位读写（pkg/slotstore 实现）
type Slots interface {
	Put(slot string, value []byte) error
	Get(slot string) ([]byte, error)
	Delete(slot string) error
}

// SnapshotRepository 聚合快照的本地持久化
// 所有写操作失败只记录日志，不向调用方返回错误
type SnapshotRepository interface {
	Save(s production.Snapshot)
	// Load 读取快照；槽位缺失或内容损坏时返回空快照
	Load() production.Snapshot
	Clear()

	SaveLastShift(shift string)
	LastShift() string
	ClearLastShift()
}

type snapshotRepo struct {
	slots  Slots
	logger *zap.Logger
}

// NewSnapshotRepo 创建 SnapshotRepository 实例
func NewSnapshotRepo(slots Slots, logger *zap.Logger) SnapshotRepository {
	return &snapshotRepo{slots: slots, logger: logger}
}

func (r *snapshotRepo) Save(s production.Snapshot) {
	if s.Empty() {
		r.Clear()
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("序列化快照失败", zap.Error(err))
		return
	}
	if err := r.slots.Put(SlotRun, raw); err != nil {
		r.logger.Error("写入本地快照失败", zap.String("slot", SlotRun), zap.Error(err))
	}
}

func (r *snapshotRepo) Load() production.Snapshot {
	raw, err := r.slots.Get(SlotRun)
	if err != nil {
		if !errors.Is(err, slotstore.ErrSlotEmpty) {
			r.logger.Warn("读取本地快照失败，按空状态启动",
				zap.Error(&pkgerrors.CorruptLocalStateError{Slot: SlotRun, Err: err}))
		}
		return production.Snapshot{Partials: []production.Partial{}}
	}

	var s production.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		r.logger.Warn("本地快照已损坏，按空状态启动",
			zap.Error(&pkgerrors.CorruptLocalStateError{Slot: SlotRun, Err: err}))
		return production.Snapshot{Partials: []production.Partial{}}
	}
	if s.Run != nil && s.Run.ID == "" {
		r.logger.Warn("本地快照缺少批次标识，按空状态启动",
			zap.Error(&pkgerrors.CorruptLocalStateError{Slot: SlotRun, Err: errRunIDMissing}))
		return production.Snapshot{Partials: []production.Partial{}}
	}
	if s.Run == nil {
		s.Partials = []production.Partial{}
	}
	if s.Partials == nil {
		s.Partials = []production.Partial{}
	}
	return s
}

func (r *snapshotRepo) Clear() {
	if err := r.slots.Delete(SlotRun); err != nil {
		r.logger.Error("清除本地快照失败", zap.String("slot", SlotRun), zap.Error(err))
	}
}

// ── 上次使用的班次（界面偏好） ──

func (r *snapshotRepo) SaveLastShift(shift string) {
	if shift == "" {
		return
	}
	if err := r.slots.Put(SlotLastShift, []byte(shift)); err != nil {
		r.logger.Warn("保存班次偏好失败", zap.Error(err))
	}
}

func (r *snapshotRepo) LastShift() string {
	raw, err := r.slots.Get(SlotLastShift)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (r *snapshotRepo) ClearLastShift() {
	if err := r.slots.Delete(SlotLastShift); err != nil {
		r.logger.Warn("清除班次偏好失败", zap.Error(err))
	}
}

// ── 设备标识 ──

// SlotDeviceID 本机设备标识槽位（跨重启保持不变）
const SlotDeviceID = "device_id"

// DeviceID 读取本机设备标识；槽位为空时用 generate 生成并写入
func DeviceID(slots Slots, generate func() string) (string, error) {
	raw, err := slots.Get(SlotDeviceID)
	if err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	if err != nil && !errors.Is(err, slotstore.ErrSlotEmpty) {
		return "", err
	}

	id := generate()
	if err := slots.Put(SlotDeviceID, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}
