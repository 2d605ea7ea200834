package model

import "encoding/json"

// Optional はJSONの部分更新で「未指定」と「null」を区別する値。
// フィールドが存在しない場合 Set は false のまま、null の場合は Set と Null が true になる。
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some は値が指定されたOptionalを返す。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null はnullが指定されたOptionalを返す。
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Present は値が指定され、かつnullでないかを返す。
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}
