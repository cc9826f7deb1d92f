package model

import (
	"strings"
	"time"

	"linkbio-billing/internal/domain"

	"github.com/oklog/ulid/v2"
)

type Audience string

const (
	AudienceAll  Audience = "all"
	AudienceFree Audience = "free"
	AudiencePro  Audience = "pro"
)

type BroadcastStatus string

const (
	BroadcastQueued    BroadcastStatus = "queued"
	BroadcastRunning   BroadcastStatus = "running"
	BroadcastCompleted BroadcastStatus = "completed"
	BroadcastFailed    BroadcastStatus = "failed"
)

// BroadcastJob is a persisted promotional email campaign with progress counters.
type BroadcastJob struct {
	ID         string          `bson:"_id" json:"id"`
	Subject    string          `bson:"subject" json:"subject"`
	HTML       string          `bson:"html" json:"html"`
	Audience   Audience        `bson:"audience" json:"audience"`
	Status     BroadcastStatus `bson:"status" json:"status"`
	Total      int             `bson:"total" json:"total"`
	Sent       int             `bson:"sent" json:"sent"`
	Failed     int             `bson:"failed" json:"failed"`
	LastError  string          `bson:"last_error,omitempty" json:"lastError,omitempty"`
	CreatedBy  string          `bson:"created_by" json:"createdBy"`
	CreatedAt  time.Time       `bson:"created_at" json:"createdAt"`
	StartedAt  *time.Time      `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	FinishedAt *time.Time      `bson:"finished_at,omitempty" json:"finishedAt,omitempty"`
}

func NewBroadcastJob(subject, html string, audience Audience, createdBy string) (*BroadcastJob, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || strings.TrimSpace(html) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if audience == "" {
		audience = AudienceAll
	}
	switch audience {
	case AudienceAll, AudienceFree, AudiencePro:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &BroadcastJob{
		ID:        ulid.Make().String(),
		Subject:   subject,
		HTML:      html,
		Audience:  audience,
		Status:    BroadcastQueued,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (j *BroadcastJob) Done() bool {
	return j.Status == BroadcastCompleted || j.Status == BroadcastFailed
}
