package dex

import "soondex/internal/model"

// rollWindow zeroes the rolling counters once the window has elapsed.
func rollWindow(pool *model.Pool, now, window int64) {
	if now-pool.LastVolumeReset > window {
		pool.Volume24h = 0
		pool.Fees24h = 0
		pool.StakingRewards = 0
		pool.LastVolumeReset = now
	}
}

func refreshTVL(pool *model.Pool) {
	pool.TvlX = pool.ReserveX
	pool.TvlY = pool.ReserveY
}
