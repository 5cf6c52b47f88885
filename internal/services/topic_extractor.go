package services

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

// TopicExtractor tags chat messages with the subjects they mention
type TopicExtractor interface {
	ExtractTopics(text string, limit int) ([]string, error)
}

// devopsVocabulary lists terms that always count as topics
var devopsVocabulary = map[string]bool{
	"kubernetes": true, "k8s": true, "kubectl": true, "helm": true, "docker": true,
	"container": true, "containers": true, "pod": true, "pods": true, "terraform": true,
	"ansible": true, "puppet": true, "chef": true, "jenkins": true, "pipeline": true,
	"pipelines": true, "ci": true, "cd": true, "gitlab": true, "github": true,
	"argocd": true, "prometheus": true, "grafana": true, "alertmanager": true,
	"loki": true, "elasticsearch": true, "kibana": true, "datadog": true, "aws": true,
	"gcp": true, "azure": true, "ec2": true, "s3": true, "lambda": true, "iam": true,
	"nginx": true, "istio": true, "vault": true, "redis": true, "postgres": true,
	"mysql": true, "kafka": true, "linux": true, "systemd": true, "bash": true,
	"deployment": true, "rollback": true, "incident": true, "monitoring": true,
	"logging": true, "observability": true, "sre": true, "dns": true, "tls": true,
	"certificate": true, "ingress": true, "loadbalancer": true, "autoscaling": true,
}

// nounTags are the POS tags kept as plain topic candidates
var nounTags = map[string]bool{
	"NN":   true, // noun
	"NNS":  true, // plural noun
	"NNP":  true, // proper noun
	"NNPS": true, // plural proper noun
}

// KeywordTopicExtractor extracts topics with prose tokenization and POS tags
type KeywordTopicExtractor struct {
	// Common stop words to filter out
	stopWords map[string]bool
	// Minimum topic length in runes
	minLength int
}

type topicCandidate struct {
	word      string
	frequency int
	first     int
	known     bool
}

// NewKeywordTopicExtractor creates a new topic extractor
func NewKeywordTopicExtractor() *KeywordTopicExtractor {
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
		"be": true, "been": true, "have": true, "has": true, "had": true, "do": true,
		"does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
		"this": true, "that": true, "these": true, "those": true, "i": true, "you": true,
		"it": true, "we": true, "they": true, "my": true, "our": true, "your": true,
		"how": true, "what": true, "why": true, "when": true, "thing": true, "things": true,
		"way": true, "lot": true, "help": true, "question": true,
	}

	return &KeywordTopicExtractor{
		stopWords: stopWords,
		minLength: 2,
	}
}

// ExtractTopics returns up to limit topics, DevOps vocabulary first, then
// nouns; ties go to the more frequent and then the earlier word.
// A non-positive limit returns every topic.
func (e *KeywordTopicExtractor) ExtractTopics(text string, limit int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]*topicCandidate)
	for i, tok := range doc.Tokens() {
		word := strings.ToLower(tok.Text)
		if e.shouldSkipWord(word) {
			continue
		}

		known := devopsVocabulary[word]
		if !known && !nounTags[tok.Tag] {
			continue
		}

		if c, ok := candidates[word]; ok {
			c.frequency++
			continue
		}
		candidates[word] = &topicCandidate{word: word, frequency: 1, first: i, known: known}
	}

	ranked := make([]*topicCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.known != b.known {
			return a.known
		}
		if a.frequency != b.frequency {
			return a.frequency > b.frequency
		}
		return a.first < b.first
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	topics := make([]string, len(ranked))
	for i, c := range ranked {
		topics[i] = c.word
	}
	return topics, nil
}

func (e *KeywordTopicExtractor) shouldSkipWord(word string) bool {
	if utf8.RuneCountInString(word) < e.minLength {
		return true
	}
	if e.stopWords[word] {
		return true
	}
	return isPureNumber(word) || isPunctuation(word)
}

// isPureNumber checks if string contains only digits
func isPureNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// isPunctuation checks if string contains only punctuation
func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return len(s) > 0
}
