package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"spotload/internal/logger"
	"spotload/pkg/models"
)

// asciiFolds covers letters that NFD does not decompose into a base letter
// plus combining marks.
var asciiFolds = map[rune]string{
	'ø': "o", 'Ø': "O",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ß': "ss",
	'đ': "d", 'Đ': "D",
	'ł': "l", 'Ł': "L",
}

// TransliterateToASCII converts Unicode characters to ASCII equivalents.
// Characters with no ASCII base letter are dropped.
func TransliterateToASCII(input string) string {
	var result strings.Builder
	for _, r := range input {
		if mapped, ok := asciiFolds[r]; ok {
			result.WriteString(mapped)
			continue
		}
		if r <= unicode.MaxASCII {
			result.WriteRune(r)
			continue
		}
		for _, nr := range norm.NFD.String(string(r)) {
			if !unicode.Is(unicode.Mn, nr) && nr <= unicode.MaxASCII {
				result.WriteRune(nr)
				break
			}
		}
	}
	return result.String()
}

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// NormalizeString converts string to normalized form for matching
func NormalizeString(input string) string {
	result := strings.ToLower(TransliterateToASCII(input))

	result = nonAlnum.ReplaceAllString(result, " ")
	result = multiSpace.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// CreateSearchQuery builds the media search query for a track. The
// "lyrics" suffix steers results towards plain audio uploads rather than
// music videos with intros and outros.
func CreateSearchQuery(track models.Track) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s lyrics", track.Name, track.Artist))
}

// SanitizeFolderName replaces path separators so a catalog name can be used
// as a single path segment.
func SanitizeFolderName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// TrackFileName is the base name (without extension) an acquired track is saved under.
func TrackFileName(track models.Track) string {
	return SanitizeFolderName(fmt.Sprintf("%s - %s", track.Name, track.Artist))
}

// MatchScore represents a match score with details
type MatchScore struct {
	Score  float64
	Title  string
	Reason string
}

// CalculateMatchScore calculates how well a matched title covers the query
func CalculateMatchScore(query, title string) MatchScore {
	normalizedQuery := NormalizeString(query)
	normalizedTitle := NormalizeString(title)

	queryWords := strings.Fields(normalizedQuery)
	titleWords := strings.Fields(normalizedTitle)

	if len(queryWords) == 0 {
		return MatchScore{Score: 0, Title: title, Reason: "empty query"}
	}

	// Check for exact match
	if normalizedQuery == normalizedTitle {
		return MatchScore{Score: 1.0, Title: title, Reason: "exact match"}
	}

	// Count matching words
	queryWordSet := make(map[string]bool)
	for _, word := range queryWords {
		queryWordSet[word] = true
	}

	matchingWords := 0
	for _, word := range titleWords {
		if queryWordSet[word] {
			matchingWords++
		}
	}

	// Base score is ratio of matching words to query words
	baseScore := float64(matchingWords) / float64(len(queryWords))

	// Bonus points for exact word sequence matches
	sequenceBonus := 0.0
	if matchingWords > 1 {
		queryText := strings.Join(queryWords, " ")
		if strings.Contains(normalizedTitle, queryText) {
			sequenceBonus = 0.2
		}
	}

	// Covers and live takes are the usual wrong hits for a studio track
	variantPenalty := 0.0
	for _, term := range []string{"cover", "live", "karaoke", "instrumental"} {
		if queryWordSet[term] {
			continue
		}
		for _, word := range titleWords {
			if word == term {
				variantPenalty = 0.2
			}
		}
	}

	// Uploads carry extra words ("official audio", "lyrics"); only penalize beyond three
	extraWordsPenalty := 0.0
	extraWords := len(titleWords) - matchingWords
	if extraWords > 3 {
		extraWordsPenalty = float64(extraWords-3) * 0.02
	}

	finalScore := baseScore + sequenceBonus - variantPenalty - extraWordsPenalty
	if finalScore > 1.0 {
		finalScore = 1.0
	}
	if finalScore < 0 {
		finalScore = 0
	}

	reason := fmt.Sprintf("base:%.2f seq:%.2f variant:%.2f penalty:%.2f (%d/%d words)",
		baseScore, sequenceBonus, variantPenalty, extraWordsPenalty, matchingWords, len(queryWords))

	return MatchScore{
		Score:  finalScore,
		Title:  title,
		Reason: reason,
	}
}

// MatchThreshold is the score below which a matched upload is reported as a
// probable mismatch.
const MatchThreshold = 0.15

// LogMatchDecision logs how well the upload picked by the media search
// matches the catalog track.
func LogMatchDecision(track models.Track, title string) MatchScore {
	query := fmt.Sprintf("%s %s", track.Name, track.Artist)
	score := CalculateMatchScore(query, title)

	logger.Debug("Match for '%s': '%s' score %.3f (%s)", query, title, score.Score, score.Reason)
	if score.Score < MatchThreshold {
		logger.Warn("Downloaded '%s' for '%s' looks like a poor match (score %.3f)", title, query, score.Score)
	}
	return score
}
