package connector

// fullRefreshMinutes is the window within which every tag is refreshed.
const fullRefreshMinutes = 14 * 24 * 60

// MinimumRefreshBatchSize keeps refreshes moving when there are few issues.
const MinimumRefreshBatchSize = 10

// RefreshBatchSize computes how many issues one refresh run re-upserts so
// the whole set is covered once per fortnight when refresh runs every
// intervalMinutes. The result is clamped to [MinimumRefreshBatchSize,
// uploadBatchSize]; when uploadBatchSize is below the minimum, the minimum
// wins.
func RefreshBatchSize(issueCount int64, intervalMinutes, uploadBatchSize int) int {
	if intervalMinutes <= 0 {
		intervalMinutes = 1
	}
	runs := int64(fullRefreshMinutes / intervalMinutes)
	if runs < 1 {
		runs = 1
	}
	ideal := issueCount / runs

	if ideal > int64(uploadBatchSize) {
		return uploadBatchSize
	}
	if ideal < MinimumRefreshBatchSize {
		return MinimumRefreshBatchSize
	}
	return int(ideal)
}
