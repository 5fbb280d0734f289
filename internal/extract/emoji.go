package extract

// emoji ranges cover the standard pictographic Unicode blocks:
// emoticons, symbols & pictographs, transport & map, regional indicators,
// dingbats, and enclosed characters.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F1E0, 0x1F1FF},
	{0x2702, 0x27B0},
	{0x1F900, 0x1F9FF},
	{0x2600, 0x26FF},
}

func isEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// extractEmojis counts emoji usage per glyph.
func extractEmojis(message string) map[string]int {
	counts := map[string]int{}
	for _, r := range message {
		if isEmoji(r) {
			counts[string(r)]++
		}
	}
	return counts
}
