// Package autosync はInstagramリールの定期自動同期を提供する。
// auto_syncを有効にしたショップを対象に、スケジューラが並列制御と
// 失敗ショップへの指数バックオフを行いながら同期を実行する。
package autosync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/repository"
)

// ReelSyncService はショップ単位のInstagram同期の実行インターフェース。
type ReelSyncService interface {
	// Sync はアクセストークンのアカウントの全動画をショップに同期し、同期件数を返す。
	Sync(ctx context.Context, shop, accessToken string) (int, error)
}

// Scheduler は自動同期のスケジューリングと並列制御を行う。
// ティッカー間隔ごとにauto_sync有効ショップを取得し、
// semaphoreパターンで最大並列数を制御しながら同期を実行する。
type Scheduler struct {
	settingsRepo   repository.SettingsRepository
	syncer         ReelSyncService
	accessToken    string
	logger         *slog.Logger
	maxConcurrency int
	backoff        *backoffTracker
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	settingsRepo repository.SettingsRepository,
	syncer ReelSyncService,
	accessToken string,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		settingsRepo:   settingsRepo,
		syncer:         syncer,
		accessToken:    accessToken,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		backoff:        newBackoffTracker(),
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("自動同期スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("自動同期サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("自動同期スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("自動同期サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はauto_sync有効ショップを1回取得し、並列で同期を実行する。
// バックオフ中のショップはスキップし、個別ショップの失敗はサイクル全体を
// 失敗させない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	shops, err := s.settingsRepo.ListAutoSyncShops(ctx)
	if err != nil {
		return err
	}

	if len(shops) == 0 {
		s.logger.Info("自動同期対象のショップはありません")
		return nil
	}

	s.logger.Info("自動同期サイクルを開始します",
		slog.Int("shop_count", len(shops)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, shop := range shops {
		if s.backoff.ShouldSkip(shop) {
			s.logger.Info("バックオフ中のためショップをスキップします",
				slog.String("shop", shop),
				slog.Int("consecutive_errors", s.backoff.ConsecutiveErrors(shop)),
			)
			continue
		}

		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(shop string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			synced, err := s.syncer.Sync(ctx, shop, s.accessToken)
			if err != nil {
				s.backoff.RecordFailure(shop)
				s.logger.Error("ショップの自動同期に失敗しました",
					slog.String("shop", shop),
					slog.Int("consecutive_errors", s.backoff.ConsecutiveErrors(shop)),
					slog.String("error", err.Error()),
				)
				return
			}

			s.backoff.RecordSuccess(shop)
			s.logger.Info("ショップの自動同期が完了しました",
				slog.String("shop", shop),
				slog.Int("synced", synced),
			)
		}(shop)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("自動同期サイクルが完了しました",
		slog.Int("shop_count", len(shops)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
