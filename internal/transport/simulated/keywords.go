package simulated

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	domconv "github.com/kailas-cloud/convscore/internal/domain/conversation"
)

const minKeywordLen = 3

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all also am an and any are as at be because been before being
		below between both but by can could did do does doing down during each few for from further get
		got had has have having he her here hers herself him himself his how i if in into is it its itself
		just like me more most my myself no nor not now of off on once only or other our ours ourselves
		out over own really same she should so some such than that the their theirs them themselves then
		there these they this those through to too under until up very was we were what when where which
		while who whom why will with would yeah yes you your yours yourself yourselves okay well know think
		thing things going want one two lot much`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Keywords ranks the content words of lines by frequency and returns up to n
// of them. Ties are broken lexically so the output is deterministic.
func Keywords(lines []domconv.Line, n int) []string {
	if n <= 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, l := range lines {
		for _, tok := range strings.FieldsFunc(strings.ToLower(l.Text), notWordRune) {
			if len(tok) < minKeywordLen {
				continue
			}
			if _, stop := stopwords[tok]; stop {
				continue
			}
			counts[tok]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// HashEmbedding maps a tag to a deterministic unit vector of dim components.
func HashEmbedding(tag string, dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	out := make([]float32, dim)
	var norm float64
	var buf [8]byte
	for i := range out {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tag))
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		_, _ = h.Write(buf[:])
		v := float64(h.Sum64())/float64(math.MaxUint64)*2 - 1
		out[i] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		return out
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range out {
		out[i] *= scale
	}
	return out
}
