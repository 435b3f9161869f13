package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reggenie/internal/models"
	"reggenie/internal/store"

	"go.uber.org/zap"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

const snippetLength = 120

var ratingLabels = map[int]string{
	1: "Inaccurate",
	2: "Needs Improvement",
	3: "Satisfactory",
	4: "Very Good",
	5: "Exceptional",
}

// RatingLabel names a star rating.
func RatingLabel(rating int) string {
	return ratingLabels[rating]
}

// Feedback stores assistant ratings. Feedback never leaves the local store.
type Feedback struct {
	items  *store.Collection[models.GenieFeedback]
	chat   *Service
	logger *zap.Logger
	now    func() time.Time
}

func NewFeedback(local store.Local, chat *Service, logger *zap.Logger) *Feedback {
	return &Feedback{
		items: store.NewCollection(store.Options[models.GenieFeedback]{
			Name:      "genie_feedback",
			LocalKey:  store.FeedbackKey,
			LocalOnly: true,
			Less:      func(a, b models.GenieFeedback) bool { return a.Timestamp > b.Timestamp },
		}, local, nil, logger),
		chat:   chat,
		logger: logger,
		now:    time.Now,
	}
}

type FeedbackRequest struct {
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Topic     string `json:"topic"`
	SessionID string `json:"sessionId"`
}

// Submit validates and stores a rating. When a session is given the last
// question and answer are attached as snippets.
func (f *Feedback) Submit(ctx context.Context, req FeedbackRequest) (models.GenieFeedback, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return models.GenieFeedback{}, ErrInvalidRating
	}

	ts := f.now().UnixMilli()
	fb := models.GenieFeedback{
		ID:        fmt.Sprintf("fb-%d", ts),
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		Timestamp: ts,
		Topic:     req.Topic,
	}

	if req.SessionID != "" && f.chat != nil {
		if sess, err := f.chat.Session(req.SessionID); err == nil {
			for i := len(sess.Messages) - 1; i >= 0; i-- {
				m := sess.Messages[i]
				if m.Role == models.RoleModel && fb.ResponseSnippet == "" && m.ID != "init" {
					fb.ResponseSnippet = snippet(m.Text)
				}
				if m.Role == models.RoleUser && fb.QuerySnippet == "" {
					fb.QuerySnippet = snippet(m.Text)
				}
			}
		}
	}

	f.items.Save(ctx, fb)
	f.logger.Info("Feedback submitted",
		zap.Int("rating", fb.Rating),
		zap.String("label", RatingLabel(fb.Rating)))
	return fb, nil
}

// List returns feedback newest first.
func (f *Feedback) List(ctx context.Context) []models.GenieFeedback {
	items, _ := f.items.Get(ctx)
	return items
}

func snippet(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= snippetLength {
		return string(r)
	}
	return string(r[:snippetLength]) + "..."
}
