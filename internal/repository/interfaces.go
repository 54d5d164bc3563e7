// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/yatai/internal/model"
)

// UserRepository はユーザー（プロフィール）データの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。IDと作成時刻は呼び出し側が設定する。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// List はユーザー一覧を作成時刻の降順で返す。
	// totalはlimit/offsetに関わらず全件数を返す。
	List(ctx context.Context, limit, offset int) (users []*model.User, total int, err error)

	// UpdateName は指定IDのユーザー名を更新する。見つからない場合はnilを返す。
	UpdateName(ctx context.Context, id, name string) (*model.User, error)

	// Delete は指定IDのユーザーを削除する。
	// 関連するuser_identities、business、menuはCASCADE削除される。
	// 行が存在し削除された場合にtrueを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// Create はidentityを作成する。
	// (provider, provider_user_id) の一意制約違反はIsUniqueViolationで検出できる。
	Create(ctx context.Context, identity *model.Identity) error

	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Delete は指定IDのidentityを削除する。行が存在し削除された場合にtrueを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// BusinessRepository はビジネスデータの永続化インターフェース。
// 読み取り・更新・削除はすべて所有者スコープ（id AND user_id）で行う。
type BusinessRepository interface {
	// Create はビジネスを作成する。
	Create(ctx context.Context, business *model.Business) error

	// FindByIDAndOwner はidと所有者idの両方で絞り込んでビジネスを取得する。
	// 行が存在しても所有者が異なる場合はnilを返す。
	FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Business, error)

	// ListByOwner は所有者のビジネス一覧を作成時刻の降順で返す。
	ListByOwner(ctx context.Context, userID string) ([]*model.Business, error)

	// Update は所有者スコープでビジネスを更新する。
	Update(ctx context.Context, business *model.Business) error

	// Delete は所有者スコープでビジネスを削除する。削除された場合にtrueを返す。
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// MenuRepository はメニューデータの永続化インターフェース。
// 読み取り・更新・削除はビジネススコープ（id AND business_id）で行う。
type MenuRepository interface {
	// Create はメニューを作成する。
	Create(ctx context.Context, menu *model.Menu) error

	// FindByIDAndBusiness はidとbusiness_idの両方で絞り込んでメニューを取得する。
	// 見つからない場合はnilを返す。
	FindByIDAndBusiness(ctx context.Context, id, businessID string) (*model.Menu, error)

	// ListByBusiness はビジネスのメニュー一覧を作成時刻の降順で返す。
	ListByBusiness(ctx context.Context, businessID string) ([]*model.Menu, error)

	// Update はビジネススコープでメニューを更新する。
	Update(ctx context.Context, menu *model.Menu) error

	// Delete はビジネススコープでメニューを削除する。削除された場合にtrueを返す。
	Delete(ctx context.Context, id, businessID string) (bool, error)

	// ListImagesByUserID はユーザーが所有する全ビジネスの全メニュー画像URLを返す。
	// ユーザー削除時のストレージ手動クリーンアップに使用する。
	ListImagesByUserID(ctx context.Context, userID string) ([]string, error)
}

// VendorRepository は屋台ディレクトリの読み取りインターフェース。
type VendorRepository interface {
	// List は屋台ディレクトリ全件を返す。
	List(ctx context.Context) ([]*model.Vendor, error)
}
