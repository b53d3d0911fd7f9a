package querycache

import (
	jsoniter "github.com/json-iterator/go"
)

// 与 encoding/json 兼容且按 key 排序输出 map，保证同一组变量得到同一个 key。
var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Key 标识一次读：operation 名 + 变量值。
type Key struct {
	Op   string
	Vars map[string]any
}

// String 返回规范化后的 key："op" 或 "op?{...}"（变量按名字排序）。
func (k Key) String() string {
	if len(k.Vars) == 0 {
		return k.Op
	}
	b, err := codec.Marshal(k.Vars)
	if err != nil {
		// 变量来自固定 operation 的简单值；无法编码时退化成不可共享的 key。
		return k.Op + "?!" + err.Error()
	}
	return k.Op + "?" + string(b)
}
