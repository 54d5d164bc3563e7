// Package validation は宣言的スキーマによるリクエスト検証を提供する。
//
// スキーマはフィールド名と制約の順序付きリストであり、単一の汎用ルーチン
// （Schema.Validate）がこれを解釈する。検証失敗時はVALIDATION_ERRORの
// APIErrorを返し、Detailsには違反フィールドごとの {path, message} を
// スキーマ定義順で列挙する。pathは入力ソースとフィールド名をドットで
// 連結した形式（例: "body.longitude", "query.limit"）。
package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/hitoshi/yatai/internal/model"
)

// Rule は単一の制約を表す。
// 検証に成功した場合は正規化済みの値と空文字列を、
// 違反した場合は違反メッセージを返す。
type Rule interface {
	Validate(value any) (any, string)
}

// ruleFunc は関数をRuleとして扱うためのアダプタ。
type ruleFunc func(value any) (any, string)

func (f ruleFunc) Validate(v any) (any, string) { return f(v) }

// Field は1フィールドの制約定義。
// Optionalのフィールドは入力に存在しなくても違反にならない。
// Nullableのフィールドは明示的なnullを許容する。
// Defaultは入力に存在しない場合に採用される値（Rulesは適用されない）。
type Field struct {
	Name     string
	Optional bool
	Nullable bool
	Default  any
	Rules    []Rule
}

// Schema は1つの入力ソース（body/query/params）に対する検証スキーマ。
// Fieldsの順序がそのままDetailsの列挙順になる。
type Schema struct {
	Source string
	Fields []Field
}

// New は指定ソースのSchemaを生成する。
func New(source string, fields ...Field) *Schema {
	return &Schema{Source: source, Fields: fields}
}

// Validate は入力バッグをスキーマで検証する。
// 成功時は正規化済みの値マップを返す。失敗時は違反フィールドを
// すべて列挙したVALIDATION_ERRORを返す（フィールドごとに最初の違反1件）。
func (s *Schema) Validate(bag map[string]any) (map[string]any, *model.APIError) {
	out := make(map[string]any, len(s.Fields))
	var details []model.FieldError

	for _, f := range s.Fields {
		path := s.Source + "." + f.Name
		value, present := bag[f.Name]

		// 明示的なnull
		if present && value == nil {
			if f.Nullable {
				out[f.Name] = nil
				continue
			}
			details = append(details, model.FieldError{Path: path, Message: "must not be null"})
			continue
		}

		// 未指定
		if !present {
			if f.Default != nil {
				out[f.Name] = f.Default
				continue
			}
			if f.Optional {
				continue
			}
			details = append(details, model.FieldError{Path: path, Message: "is required"})
			continue
		}

		// ルールを順に適用し、最初の違反で打ち切る
		violated := false
		for _, rule := range f.Rules {
			normalized, msg := rule.Validate(value)
			if msg != "" {
				details = append(details, model.FieldError{Path: path, Message: msg})
				violated = true
				break
			}
			value = normalized
		}
		if !violated {
			out[f.Name] = value
		}
	}

	if len(details) > 0 {
		return nil, model.NewValidationError(details)
	}
	return out, nil
}

// asString は値を文字列として取り出す。
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asFloat はJSON数値（float64）または整数を取り出す。
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// MinLen は文字列の最小長制約を生成する。
// 長さ1の場合のメッセージは必須入力として報告する。
func MinLen(n int) Rule {
	return ruleFunc(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, "must be a string"
		}
		if len(s) < n {
			if n == 1 {
				return nil, "must not be empty"
			}
			return nil, fmt.Sprintf("must be at least %d characters", n)
		}
		return s, ""
	})
}

// MaxLen は文字列の最大長制約を生成する。
func MaxLen(n int) Rule {
	return ruleFunc(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, "must be a string"
		}
		if len(s) > n {
			return nil, fmt.Sprintf("must be at most %d characters", n)
		}
		return s, ""
	})
}

// FloatRange は数値の範囲制約を生成する。境界値は範囲に含まれる。
func FloatRange(min, max float64) Rule {
	return ruleFunc(func(v any) (any, string) {
		n, ok := asFloat(v)
		if !ok {
			return nil, "must be a number"
		}
		if n < min || n > max {
			return nil, fmt.Sprintf("must be between %g and %g", min, max)
		}
		return n, ""
	})
}

// UUID はUUID形式の制約を生成する。
func UUID() Rule {
	return ruleFunc(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, "must be a string"
		}
		if _, err := uuid.Parse(s); err != nil {
			return nil, "must be a valid UUID"
		}
		return s, ""
	})
}

// Email はメールアドレス形式の制約を生成する。
func Email() Rule {
	return ruleFunc(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, "must be a string"
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return nil, "must be a valid email address"
		}
		return s, ""
	})
}

// URL はhttp/https URLの制約を生成する。
func URL() Rule {
	return ruleFunc(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			return nil, "must be a string"
		}
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, "must be a valid URL"
		}
		return s, ""
	})
}

// Literal は固定文字列との一致制約を生成する。
func Literal(want string) Rule {
	return ruleFunc(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok || s != want {
			return nil, fmt.Sprintf("must be %q", want)
		}
		return s, ""
	})
}

// OneOf は許可された文字列集合との一致制約を生成する。
func OneOf(allowed ...string) Rule {
	return ruleFunc(func(v any) (any, string) {
		s, ok := asString(v)
		if ok {
			for _, a := range allowed {
				if s == a {
					return s, ""
				}
			}
		}
		return nil, fmt.Sprintf("must be one of %v", allowed)
	})
}

// IntFromString は文字列から整数へのパースと範囲制約を生成する。
// クエリパラメータ（常に文字列で届く）の数値検証に使用する。
func IntFromString(min, max int) Rule {
	return ruleFunc(func(v any) (any, string) {
		s, ok := asString(v)
		if !ok {
			// ボディ経由で既に数値の場合も受け付ける
			if n, isNum := asFloat(v); isNum {
				s = strconv.FormatInt(int64(n), 10)
			} else {
				return nil, "must be an integer"
			}
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, "must be an integer"
		}
		if n < min || n > max {
			return nil, fmt.Sprintf("must be between %d and %d", min, max)
		}
		return n, ""
	})
}
