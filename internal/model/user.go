// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（プロフィール）を表す。
// 初回のソーシャルログインまたは初回認証時に暗黙的に作成される。
type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// (Provider, ProviderUserID) の組が一意であり、
// ソーシャルログインの冪等性キーとして機能する。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	ProviderEmail  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FacebookLoginResult はソーシャルログインの結果を表す。
// IsNewUserがtrueの場合、このログインでユーザーが新規作成された。
type FacebookLoginResult struct {
	User      *User
	Identity  *Identity
	IsNewUser bool
}
