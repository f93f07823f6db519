package sqlstore

import (
	"math"
	"strings"
)

// keywordScore 查询词在 content/key 中的命中比例（不区分大小写）
func keywordScore(terms []string, content, key string) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(content + " " + key)
	hits := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// cosineSimilarity 余弦相似度，长度不一致或零向量时为 0
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// hybridScore 加权合并并夹到 [0,1]
func hybridScore(keyword, vector, keywordWeight, vectorWeight float64) float64 {
	return clamp01(keyword*keywordWeight + clamp01(vector)*vectorWeight)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
