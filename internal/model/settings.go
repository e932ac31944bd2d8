package model

import "time"

// AppSettings はショップごとのウィジェット表示設定を表す。
// ショップドメインをキーに1行のみ存在し、初回アクセス時に既定値で遅延作成される。
type AppSettings struct {
	Shop string

	// 外観
	PrimaryColor    string
	ButtonTextColor string
	ButtonText      string
	BorderRadius    int
	LayoutType      string
	EnableGradient  bool
	WidgetHeading   string

	// 挙動
	CartAction            string // ajax / cart / checkout
	AutoSync              bool
	Autoplay              bool
	ShowViews             bool
	ShowRating            bool
	FloatingPlayerVisible bool
	DisplayLocation       string // product / home / both

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultAppSettings は指定ショップの既定設定を返す。
// 設定行が未作成のショップに対して、ストアフロントプロキシはこの値をそのまま返す
// （DBへの書き込みは行わない）。管理画面側は初回アクセス時にこの値でupsertする。
func DefaultAppSettings(shop string) *AppSettings {
	return &AppSettings{
		Shop:                  shop,
		PrimaryColor:          "#000000",
		ButtonTextColor:       "#ffffff",
		ButtonText:            "Add to Bag",
		BorderRadius:          12,
		LayoutType:            "slider",
		EnableGradient:        true,
		WidgetHeading:         "Trending Reels",
		CartAction:            "ajax",
		AutoSync:              false,
		Autoplay:              true,
		ShowViews:             true,
		ShowRating:            true,
		FloatingPlayerVisible: true,
		DisplayLocation:       "both",
	}
}

// AppSettingsUpdate は設定フォームからの部分更新を表す。
// nilのフィールドは変更しない（フォームに含まれたキーのみ更新する）。
type AppSettingsUpdate struct {
	PrimaryColor          *string
	ButtonTextColor       *string
	ButtonText            *string
	BorderRadius          *int
	LayoutType            *string
	EnableGradient        *bool
	WidgetHeading         *string
	CartAction            *string
	AutoSync              *bool
	Autoplay              *bool
	ShowViews             *bool
	ShowRating            *bool
	FloatingPlayerVisible *bool
	DisplayLocation       *string
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (u *AppSettingsUpdate) IsEmpty() bool {
	return u.PrimaryColor == nil && u.ButtonTextColor == nil && u.ButtonText == nil &&
		u.BorderRadius == nil && u.LayoutType == nil && u.EnableGradient == nil &&
		u.WidgetHeading == nil && u.CartAction == nil && u.AutoSync == nil &&
		u.Autoplay == nil && u.ShowViews == nil && u.ShowRating == nil &&
		u.FloatingPlayerVisible == nil && u.DisplayLocation == nil
}
