package generator

// attemptState 持有一次 Generate 调用内的重试上下文，不跨调用共享。
type attemptState struct {
	attempt        int
	lastReason     string
	lastWordCount  int
	correctionNote string
}

// fail 记录本轮失败，并生成下一轮提示使用的修正说明。
func (s *attemptState) fail(reason string, wordCount int, limits Limits) {
	s.lastReason = reason
	s.lastWordCount = wordCount
	s.correctionNote = correctionNote(reason, wordCount, limits)
}

// foldExpansion 把扩写失败原因并入外层失败原因。
func foldExpansion(reason, expansionReason string) string {
	return reason + " | Expansion attempt failed: " + expansionReason
}
