package model

import "time"

// Business はユーザーが所有する屋台・ビジネスを表す。
// LongitudeとLatitudeは度単位の座標（経度 [-180,180]、緯度 [-90,90]）。
type Business struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Image       string
	Longitude   float64
	Latitude    float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaxMenuImages はメニュー1件に紐付けられる画像の上限数。
const MaxMenuImages = 3

// Menu はビジネスに属するメニューを表す。
// Imagesはオブジェクトストレージ上の公開URLを順序付きで保持し、
// 常に MaxMenuImages 件以下であることが不変条件。
type Menu struct {
	ID         string
	BusinessID string
	Menu       string
	Images     []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Vendor は検索画面向けの屋台ディレクトリエントリを表す。
// 読み取り専用のキュレーションデータ。
type Vendor struct {
	ID          string
	Name        string
	Cuisine     string
	Area        string
	Rating      float64
	IsOpen      bool
	PriceRange  string
	Description string
	PhotoURL    string
}
