package validation

import "math"

// 各エンドポイントで共有する検証スキーマ定義。
// 入力ソースごとに独立して検証する（body / query / params）。

// DefaultLimit はページネーションのlimit省略時の既定値。
const DefaultLimit = 50

// MaxLimit はページネーションのlimitの上限。
const MaxLimit = 200

// PaginationQuery はページネーションクエリのスキーマを返す。
// limitは[1,200]で既定50、offsetは0以上で既定0。
func PaginationQuery() *Schema {
	return New("query",
		Field{Name: "limit", Default: DefaultLimit, Rules: []Rule{IntFromString(1, MaxLimit)}},
		Field{Name: "offset", Default: 0, Rules: []Rule{IntFromString(0, math.MaxInt32)}},
	)
}

// UUIDParam は単一のUUIDパスパラメータのスキーマを返す。
func UUIDParam(name string) *Schema {
	return New("params",
		Field{Name: name, Rules: []Rule{UUID()}},
	)
}

// BusinessMenuParams はビジネスIDとメニューIDのパスパラメータスキーマを返す。
func BusinessMenuParams() *Schema {
	return New("params",
		Field{Name: "businessId", Rules: []Rule{UUID()}},
		Field{Name: "menuId", Rules: []Rule{UUID()}},
	)
}

// FacebookLoginBody はソーシャルログインのボディスキーマを返す。
// providerは固定リテラル "facebook" のみを受け付ける。
func FacebookLoginBody() *Schema {
	return New("body",
		Field{Name: "name", Rules: []Rule{MinLen(1), MaxLen(255)}},
		Field{Name: "provider", Rules: []Rule{Literal("facebook")}},
		Field{Name: "provider_user_id", Rules: []Rule{MinLen(1)}},
		Field{Name: "provider_email", Optional: true, Nullable: true, Rules: []Rule{Email()}},
	)
}

// UpdateUserBody はユーザー更新のボディスキーマを返す。
func UpdateUserBody() *Schema {
	return New("body",
		Field{Name: "name", Rules: []Rule{MinLen(1), MaxLen(255)}},
	)
}

// CreateBusinessBody はビジネス作成のボディスキーマを返す。
// 経度は[-180,180]、緯度は[-90,90]で境界値を含む。
func CreateBusinessBody() *Schema {
	return New("body",
		Field{Name: "name", Rules: []Rule{MinLen(1), MaxLen(255)}},
		Field{Name: "description", Optional: true, Nullable: true, Rules: []Rule{MaxLen(1000)}},
		Field{Name: "image", Optional: true, Nullable: true, Rules: []Rule{URL()}},
		Field{Name: "longitude", Rules: []Rule{FloatRange(-180, 180)}},
		Field{Name: "latitude", Rules: []Rule{FloatRange(-90, 90)}},
	)
}

// UpdateBusinessBody はビジネス更新のボディスキーマを返す。
// すべてのフィールドが省略可能。
func UpdateBusinessBody() *Schema {
	return New("body",
		Field{Name: "name", Optional: true, Rules: []Rule{MinLen(1), MaxLen(255)}},
		Field{Name: "description", Optional: true, Nullable: true, Rules: []Rule{MaxLen(1000)}},
		Field{Name: "image", Optional: true, Nullable: true, Rules: []Rule{URL()}},
		Field{Name: "longitude", Optional: true, Rules: []Rule{FloatRange(-180, 180)}},
		Field{Name: "latitude", Optional: true, Rules: []Rule{FloatRange(-90, 90)}},
	)
}

// CreateIdentityBody はアイデンティティ作成のボディスキーマを返す。
// providerがfirebaseの場合、id_tokenで所有確認を行う。
func CreateIdentityBody() *Schema {
	return New("body",
		Field{Name: "user_id", Rules: []Rule{UUID()}},
		Field{Name: "provider", Rules: []Rule{OneOf("facebook", "firebase")}},
		Field{Name: "provider_user_id", Rules: []Rule{MinLen(1)}},
		Field{Name: "provider_email", Optional: true, Nullable: true, Rules: []Rule{Email()}},
		Field{Name: "id_token", Optional: true, Rules: []Rule{MinLen(1)}},
	)
}
