package instagram

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/repository"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/security"
)

const (
	// defaultTitle はキャプションが無いメディアのタイトル。
	defaultTitle = "Instagram Reel"
	// titleMaxLength はキャプション由来タイトルの最大長。
	titleMaxLength = 40
	// syncRating は同期リールの表示用レーティング。
	syncRating = "4.8"
)

// SyncService はInstagramのリールをショップに同期する。
// instagram_idをキーに冪等にUPSERTするため、再同期しても重複しない。
type SyncService struct {
	client     *Client
	thumbnails *ThumbnailResolver
	reelRepo   repository.ReelRepository
	ssrfGuard  security.SSRFGuardService
	sanitizer  security.ContentSanitizerService
	logger     *slog.Logger

	// randIntn はテスト用に差し替え可能な乱数生成関数。
	randIntn func(n int) int
}

// NewSyncService はSyncServiceを生成する。
func NewSyncService(
	client *Client,
	thumbnails *ThumbnailResolver,
	reelRepo repository.ReelRepository,
	ssrfGuard security.SSRFGuardService,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		client:     client,
		thumbnails: thumbnails,
		reelRepo:   reelRepo,
		ssrfGuard:  ssrfGuard,
		sanitizer:  sanitizer,
		logger:     logger,
	}
}

// Sync はアクセストークンのアカウントの全動画を指定ショップに同期し、同期件数を返す。
// トークン未設定の場合とAPI失敗の場合はAPIErrorを返す。
// 危険なメディアURLを持つ項目はスキップする（同期全体は失敗させない）。
func (s *SyncService) Sync(ctx context.Context, shop, accessToken string) (int, error) {
	if accessToken == "" {
		return 0, model.NewInstagramTokenError()
	}

	videos, err := s.client.ListVideos(ctx, accessToken)
	if err != nil {
		s.logger.Error("Instagramメディア一覧の取得に失敗しました",
			slog.String("shop", shop),
			slog.String("error", err.Error()),
		)
		return 0, model.NewInstagramAPIError()
	}

	synced := 0
	for _, media := range videos {
		if err := s.ssrfGuard.ValidateURL(media.MediaURL); err != nil {
			s.logger.Warn("危険なメディアURLのためスキップします",
				slog.String("shop", shop),
				slog.String("instagram_id", media.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		reel := s.buildReel(ctx, shop, media)
		if err := s.reelRepo.UpsertByInstagramID(ctx, reel); err != nil {
			s.logger.Error("Instagramリールのupsertに失敗しました",
				slog.String("shop", shop),
				slog.String("instagram_id", media.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		synced++
	}

	s.logger.Info("Instagram同期が完了しました",
		slog.String("shop", shop),
		slog.Int("video_count", len(videos)),
		slog.Int("synced", synced),
	)
	return synced, nil
}

// buildReel はInstagramメディアからリールを組み立てる。
// 新規作成時のエンゲージメント初期値もここで決まる（既存行では維持される）。
func (s *SyncService) buildReel(ctx context.Context, shop string, media Media) *model.Reel {
	title := s.sanitizer.SanitizeText(media.Caption)
	if title == "" {
		title = defaultTitle
	} else if len([]rune(title)) > titleMaxLength {
		title = string([]rune(title)[:titleMaxLength])
	}

	return &model.Reel{
		Shop:         shop,
		InstagramID:  media.ID,
		VideoURL:     media.MediaURL,
		Source:       model.SourceInstagram,
		ProductTitle: title,
		ProductImage: s.thumbnails.Resolve(ctx, media),
		Views:        0,
		BoostViews:   s.randBetween(1000, 5000),
		Likes:        s.randBetween(50, 500),
		Rating:       syncRating,
		IsLive:       true,
		InstagramURL: media.Permalink,
	}
}

// randBetween は[min, max)の乱数を返す。
func (s *SyncService) randBetween(min, max int) int {
	intn := s.randIntn
	if intn == nil {
		intn = rand.Intn
	}
	return min + intn(max-min)
}
