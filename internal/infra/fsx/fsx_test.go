package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestReplace_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.json")

	if err := Replace(path, []byte("[]")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := Replace(path, []byte(`[{"title":"Arrival"}]`)); err != nil {
		t.Fatalf("覆盖写入不应失败：%v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != `[{"title":"Arrival"}]` {
		t.Fatalf("内容不一致：%q", string(b))
	}
	assertNoTemp(t, dir, "movies.json")
}

func TestReplace_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := Replace(filepath.Join(dir, "a.json"), []byte("{}")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if e.Name() == "a.json" {
			t.Fatalf("不应写出最终文件：%q", e.Name())
		}
	}
	assertNoTemp(t, dir, "a.json")
}

func TestWriteNew_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moviegraph.yaml")

	if err := WriteNew(path, []byte("endpoint: x\n"), 0o600); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	err := WriteNew(path, []byte("endpoint: y\n"), 0o600)
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("期望 os.ErrExist，实际：%v", err)
	}

	b, _ := os.ReadFile(path)
	if string(b) != "endpoint: x\n" {
		t.Fatalf("已有文件被覆盖：%q", string(b))
	}
	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat 失败：%v", err)
		}
		if fi.Mode().Perm() != 0o600 {
			t.Fatalf("期望权限 0600，实际 %v", fi.Mode().Perm())
		}
	}
}

func TestWriteNew_TargetCreatedConcurrently(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moviegraph.yaml")

	// 检查通过之后、发布之前，另一个进程写出了同名文件。
	old := linkFunc
	linkFunc = func(oldpath, newpath string) error {
		if err := os.WriteFile(newpath, []byte("endpoint: other\n"), 0o600); err != nil {
			t.Fatalf("写入并发文件失败：%v", err)
		}
		return os.Link(oldpath, newpath)
	}
	defer func() { linkFunc = old }()

	err := WriteNew(path, []byte("endpoint: x\n"), 0o600)
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("期望 os.ErrExist，实际：%v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "endpoint: other\n" {
		t.Fatalf("并发创建的文件被覆盖：%q", string(b))
	}
	assertNoTemp(t, dir, "moviegraph.yaml")
}

func TestWriteNew_TargetConflictDir(t *testing.T) {
	dir := t.TempDir()

	// 目标路径是目录：应返回 PathTypeConflictError，而不是 os.ErrExist。
	if err := os.Mkdir(filepath.Join(dir, "a.yaml"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	err := WriteNew(filepath.Join(dir, "a.yaml"), []byte("x"), 0o600)
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func assertNoTemp(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}
