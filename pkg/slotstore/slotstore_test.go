package slotstore

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"prodline/config"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&config.LocalConfig{InMemory: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("打开内存存储失败: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := openMem(t)

	if _, err := s.Get("a"); !errors.Is(err, ErrSlotEmpty) {
		t.Fatalf("空槽位应返回 ErrSlotEmpty，实际: %v", err)
	}

	if err := s.Put("a", []byte("one")); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}
	if err := s.Put("a", []byte("two")); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	got, err := s.Get("a")
	if err != nil || string(got) != "two" {
		t.Errorf("应读到最后一次写入，实际 %q, %v", got, err)
	}

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if err := s.Delete("a"); err != nil {
		t.Errorf("重复删除应视为成功: %v", err)
	}
	if _, err := s.Get("a"); !errors.Is(err, ErrSlotEmpty) {
		t.Errorf("删除后应为空，实际: %v", err)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "slots")
	cfg := &config.LocalConfig{Path: dir}

	s, err := Open(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("打开失败: %v", err)
	}
	if err := s.Put("run", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}
	s.Close()

	s, err = Open(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("重新打开失败: %v", err)
	}
	defer s.Close()

	got, err := s.Get("run")
	if err != nil || string(got) != `{"x":1}` {
		t.Errorf("重新打开后应保留内容，实际 %q, %v", got, err)
	}
}
