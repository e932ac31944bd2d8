package autosync

import (
	"sync"
	"time"
)

const (
	// initialBackoff は指数バックオフの初回遅延（10分）。
	initialBackoff = 10 * time.Minute
	// maxBackoff は指数バックオフの最大遅延（6時間）。
	maxBackoff = 6 * time.Hour
)

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回10分、2倍ずつ増加、最大6時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// backoffState はショップごとの同期失敗状態。
// Instagram API側の障害やトークン失効で失敗し続けるショップへの
// 無駄な呼び出しを抑えるため、プロセス内メモリで保持する。
type backoffState struct {
	consecutiveErrors int
	nextAttemptAt     time.Time
}

// backoffTracker はショップ単位のバックオフ状態を管理する。
type backoffTracker struct {
	mu     sync.Mutex
	states map[string]*backoffState

	// now はテスト用に差し替え可能な現在時刻関数。
	now func() time.Time
}

func newBackoffTracker() *backoffTracker {
	return &backoffTracker{
		states: make(map[string]*backoffState),
		now:    time.Now,
	}
}

// ShouldSkip はバックオフ中のショップかどうかを返す。
func (t *backoffTracker) ShouldSkip(shop string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[shop]
	if !ok {
		return false
	}
	return t.now().Before(state.nextAttemptAt)
}

// RecordFailure は同期失敗を記録し、次回試行時刻を指数バックオフで延ばす。
func (t *backoffTracker) RecordFailure(shop string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[shop]
	if !ok {
		state = &backoffState{}
		t.states[shop] = state
	}
	state.consecutiveErrors++
	state.nextAttemptAt = t.now().Add(CalculateBackoff(state.consecutiveErrors - 1))
}

// RecordSuccess は同期成功時にショップのバックオフ状態をリセットする。
func (t *backoffTracker) RecordSuccess(shop string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.states, shop)
}

// ConsecutiveErrors は指定ショップの連続エラー回数を返す。
func (t *backoffTracker) ConsecutiveErrors(shop string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[shop]
	if !ok {
		return 0
	}
	return state.consecutiveErrors
}
