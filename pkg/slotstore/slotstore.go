package slotstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"prodline/config"
)

// ErrSlotEmpty 槽位不存在或已被清除
var ErrSlotEmpty = errors.New("槽位为空")

// Store 本地持久化槽位（badger 封装）
// 每个槽位保存一段完整的序列化内容，写入为整体覆盖（后写者生效）
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open 打开本地槽位存储；cfg.InMemory 为 true 时不落盘（测试与临时运行）
func Open(cfg *config.LocalConfig, logger *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(&badgerLogger{s: logger.Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开本地存储失败: %w", err)
	}

	logger.Info("本地存储已打开",
		zap.String("path", cfg.Path),
		zap.Bool("in_memory", cfg.InMemory),
	)

	return &Store{db: db, logger: logger}, nil
}

// Put 覆盖写入槽位
func (s *Store) Put(slot string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(slot), value)
	})
}

// Get 读取槽位；不存在时返回 ErrSlotEmpty
func (s *Store) Get(slot string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(slot))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSlotEmpty
			}
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete 清除槽位，不存在时视为成功
func (s *Store) Delete(slot string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(slot))
	})
}

// Close 关闭存储
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger 将 badger 内部日志转接到 zap，Info 以下降为 Debug
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
