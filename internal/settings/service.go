// Package settings はショップごとのウィジェット設定管理を提供する。
package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/repository"
)

// Service はショップ設定の取得と更新を提供する。
type Service struct {
	settingsRepo repository.SettingsRepository
	logger       *slog.Logger
}

// NewService はServiceを生成する。
func NewService(settingsRepo repository.SettingsRepository, logger *slog.Logger) *Service {
	return &Service{settingsRepo: settingsRepo, logger: logger}
}

// Get はショップの設定を返す。設定行が未作成の場合は既定値で作成してから返す。
func (s *Service) Get(ctx context.Context, shop string) (*model.AppSettings, error) {
	settings, err := s.settingsRepo.FindByShop(ctx, shop)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	defaults := model.DefaultAppSettings(shop)
	if err := s.settingsRepo.Upsert(ctx, defaults); err != nil {
		return nil, fmt.Errorf("既定設定の作成に失敗しました: %w", err)
	}
	s.logger.Info("ショップ設定を既定値で作成しました", slog.String("shop", shop))
	return defaults, nil
}

// validCartActions はcartActionに指定できる値。
var validCartActions = map[string]bool{"ajax": true, "cart": true, "checkout": true}

// validLayoutTypes はlayoutTypeに指定できる値。
var validLayoutTypes = map[string]bool{"slider": true, "grid": true, "stories": true}

// validDisplayLocations はdisplayLocationに指定できる値。
var validDisplayLocations = map[string]bool{"product": true, "home": true, "both": true}

// Update は部分更新を適用し、更新後の設定を返す。
// 列挙値フィールドに不正な値が含まれる場合はエラーを返す。
func (s *Service) Update(ctx context.Context, shop string, update *model.AppSettingsUpdate) (*model.AppSettings, error) {
	if update.CartAction != nil && !validCartActions[*update.CartAction] {
		return nil, model.NewInvalidSettingsError(fmt.Sprintf("cartAction: %s", *update.CartAction))
	}
	if update.LayoutType != nil && !validLayoutTypes[*update.LayoutType] {
		return nil, model.NewInvalidSettingsError(fmt.Sprintf("layoutType: %s", *update.LayoutType))
	}
	if update.DisplayLocation != nil && !validDisplayLocations[*update.DisplayLocation] {
		return nil, model.NewInvalidSettingsError(fmt.Sprintf("displayLocation: %s", *update.DisplayLocation))
	}
	if update.BorderRadius != nil && (*update.BorderRadius < 0 || *update.BorderRadius > 50) {
		return nil, model.NewInvalidSettingsError(fmt.Sprintf("borderRadiusは0〜50で指定してください: %d", *update.BorderRadius))
	}

	settings, err := s.settingsRepo.Update(ctx, shop, update)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ショップ設定を更新しました", slog.String("shop", shop))
	return settings, nil
}
