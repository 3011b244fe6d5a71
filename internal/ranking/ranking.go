// Package ranking scores and selects Stories by recency, topic relevance,
// source authority, and topic weight, then enforces per-topic proportional
// targets and a diversity guard (spec §4.6).
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rohitmangal/daily-news-podcast/internal/ingestion"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

// Embedder abstracts batch embedding generation so ranking doesn't depend on
// a concrete vendor client.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// RejectedStory records why a scored candidate didn't make the final picks.
type RejectedStory struct {
	StoryID string  `json:"story_id"`
	Topic   string  `json:"topic"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}

// Report is the detailed ranking outcome attached to the pipeline report.
type Report struct {
	TopicTargets    map[string]int  `json:"topic_targets"`
	TopicDistribution map[string]int `json:"topic_distribution"`
	Rejected        []RejectedStory `json:"rejected"`
}

// Input parameterizes one ranking run.
type Input struct {
	Stories     []model.Story
	TopicWeights map[string]float64 // lower-cased label -> weight
	TargetCount int
	Now         time.Time
}

// Output is ranking's result: the selected, topic-balanced Picks.
type Output struct {
	Picks  []model.Pick
	Report Report
}

type scoredStory struct {
	story     model.Story
	embedding []float32
	score     float64
}

// Run embeds, scores, and selects stories per spec §4.6. An empty input
// short-circuits to an empty output rather than an error.
func Run(ctx context.Context, embedder Embedder, in Input) (Output, error) {
	report := Report{
		TopicTargets:      make(map[string]int),
		TopicDistribution: make(map[string]int),
	}
	if len(in.Stories) == 0 {
		return Output{Report: report}, nil
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	texts := make([]string, len(in.Stories))
	for i, s := range in.Stories {
		texts[i] = s.Title + ". " + s.Summary
	}
	storyEmbeddings, err := embedder.Embed(ctx, texts)
	if err != nil {
		return Output{}, fmt.Errorf("ranking: embed stories: %w", err)
	}

	topics := uniqueTopics(in.Stories)
	topicVectors, err := embedTopicVectors(ctx, embedder, topics, in.Stories)
	if err != nil {
		return Output{}, fmt.Errorf("ranking: embed topics: %w", err)
	}

	byTopic := make(map[string][]*scoredStory)
	for i, s := range in.Stories {
		if i >= len(storyEmbeddings) || storyEmbeddings[i] == nil {
			report.Rejected = append(report.Rejected, RejectedStory{StoryID: s.ID, Topic: s.Topic, Reason: "missing embedding"})
			continue
		}
		ss := &scoredStory{story: s, embedding: storyEmbeddings[i]}
		ss.score = scoreStory(ss, now, in.TopicWeights, topics, topicVectors)
		byTopic[strings.ToLower(s.Topic)] = append(byTopic[strings.ToLower(s.Topic)], ss)
	}

	for topic := range byTopic {
		sort.SliceStable(byTopic[topic], func(i, j int) bool {
			return byTopic[topic][i].score > byTopic[topic][j].score
		})
	}

	targets := topicTargets(in.TopicWeights, in.TargetCount)
	report.TopicTargets = targets

	orderedTopics := orderTopicsByWeight(in.TopicWeights)

	var picks []model.Pick
	for _, topic := range orderedTopics {
		target := targets[topic]
		candidates := byTopic[topic]
		var pickedForTopic []*scoredStory
		for _, cand := range candidates {
			if len(pickedForTopic) >= target {
				report.Rejected = append(report.Rejected, RejectedStory{StoryID: cand.story.ID, Topic: topic, Score: cand.score, Reason: "topic quota filled"})
				continue
			}
			if tooSimilarToPicked(cand, pickedForTopic) {
				report.Rejected = append(report.Rejected, RejectedStory{StoryID: cand.story.ID, Topic: topic, Score: cand.score, Reason: "diversity constraint"})
				continue
			}
			pickedForTopic = append(pickedForTopic, cand)
			picks = append(picks, model.Pick{
				Story:     cand.story,
				Topic:     topic,
				Score:     cand.score,
				Rationale: rationale(cand, now),
			})
			report.TopicDistribution[topic]++
		}
	}

	return Output{Picks: picks, Report: report}, nil
}

func scoreStory(ss *scoredStory, now time.Time, topicWeights map[string]float64, topics []string, topicVectors map[string][]float32) float64 {
	ageHours := now.Sub(ss.story.PublishedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	recency := math.Max(0, 1-ageHours/48)

	topicLower := strings.ToLower(ss.story.Topic)
	topicVec := topicVectors[topicLower]
	topicScore := cosine(ss.embedding, topicVec)

	authority := ingestion.TierAuthority(ss.story.Tier, ss.story.Tier == ingestion.Tier4 && ss.story.Domain == "news.google.com")

	weight, ok := topicWeights[topicLower]
	if !ok {
		weight = 0.3
	}

	var multiTopicBonus float64
	for _, other := range topics {
		if other == topicLower {
			continue
		}
		sim := cosine(ss.embedding, topicVectors[other])
		if sim > 0.65 {
			ow, ok := topicWeights[other]
			if !ok {
				ow = 0.3
			}
			multiTopicBonus += ow * sim * 0.5
		}
	}
	if multiTopicBonus > 1.0 {
		multiTopicBonus = 1.0
	}

	return 0.25*recency + 0.35*topicScore*weight + 0.15*authority + 0.15*weight + 0.10*multiTopicBonus
}

func tooSimilarToPicked(cand *scoredStory, picked []*scoredStory) bool {
	for _, p := range picked {
		if cosine(cand.embedding, p.embedding) > 0.85 {
			return true
		}
	}
	return false
}

func rationale(ss *scoredStory, now time.Time) string {
	ageHours := now.Sub(ss.story.PublishedAt).Hours()
	return fmt.Sprintf("score %.3f, age %.1fh, tier %d", ss.score, ageHours, ss.story.Tier)
}

func uniqueTopics(stories []model.Story) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range stories {
		t := strings.ToLower(s.Topic)
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// embedTopicVectors builds one keyword-bundle embedding per unique topic by
// concatenating the titles of that topic's stories as a representative
// sample of its vocabulary (spec §4.6 step 1: "embed each unique topic
// keyword-bundle once and cache").
func embedTopicVectors(ctx context.Context, embedder Embedder, topics []string, stories []model.Story) (map[string][]float32, error) {
	if len(topics) == 0 {
		return map[string][]float32{}, nil
	}
	bundles := make([]string, len(topics))
	for i, t := range topics {
		var titles []string
		for _, s := range stories {
			if strings.ToLower(s.Topic) == t {
				titles = append(titles, s.Title)
			}
		}
		bundles[i] = t + ": " + strings.Join(titles, "; ")
	}
	vecs, err := embedder.Embed(ctx, bundles)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32, len(topics))
	for i, t := range topics {
		if i < len(vecs) {
			out[t] = vecs[i]
		}
	}
	return out, nil
}

// topicTargets computes round(target_count * weight) per topic, ensures each
// enabled topic gets at least 1, and assigns any rounding slack to the
// highest-weight topic so totals equal target_count exactly (spec §4.6
// step 3).
func topicTargets(topicWeights map[string]float64, targetCount int) map[string]int {
	targets := make(map[string]int)
	if len(topicWeights) == 0 || targetCount <= 0 {
		return targets
	}
	ordered := orderTopicsByWeight(topicWeights)
	sum := 0
	for _, t := range ordered {
		n := int(math.Round(topicWeights[t] * float64(targetCount)))
		if n < 1 {
			n = 1
		}
		targets[t] = n
		sum += n
	}
	if len(ordered) == 0 {
		return targets
	}
	top := ordered[0]
	diff := targetCount - sum
	targets[top] += diff
	if targets[top] < 1 {
		targets[top] = 1
	}
	return targets
}

func orderTopicsByWeight(topicWeights map[string]float64) []string {
	ordered := make([]string, 0, len(topicWeights))
	for t := range topicWeights {
		ordered = append(ordered, t)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if topicWeights[ordered[i]] != topicWeights[ordered[j]] {
			return topicWeights[ordered[i]] > topicWeights[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})
	return ordered
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
