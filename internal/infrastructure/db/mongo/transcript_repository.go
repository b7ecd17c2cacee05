package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/audio-transcribe/client/internal/core/domain"
)

const collectionTranscripts = "transcripts"

var ErrTranscriptNotFound = errors.New("transcript not found")

// Transcript is an archived completed job.
type Transcript struct {
	JobID      string    `bson:"job_id"`
	Filename   string    `bson:"filename"`
	Owner      string    `bson:"owner,omitempty"`
	Transcript string    `bson:"transcript"`
	ArchivedAt time.Time `bson:"archived_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// TranscriptRepository implements ports.TranscriptArchive on MongoDB.
type TranscriptRepository struct {
	col *mongo.Collection
}

func NewTranscriptRepository(db *mongo.Database) *TranscriptRepository {
	return &TranscriptRepository{col: db.Collection(collectionTranscripts)}
}

// Archive upserts job keyed by job id. Re-archiving the same job only
// refreshes its content; archived_at keeps the first write.
func (r *TranscriptRepository) Archive(ctx context.Context, job domain.Job) error {
	if job.Status != domain.JobStatusCompleted {
		return fmt.Errorf("archive job %s: status %s is not completed", job.ID, job.Status)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter, update := archiveUpdate(job, time.Now().UTC())
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("archive job %s: %w", job.ID, err)
	}
	return nil
}

// FindByJobID returns the archived transcript of a job.
func (r *TranscriptRepository) FindByJobID(ctx context.Context, jobID string) (*Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t Transcript
	err := r.col.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTranscriptNotFound
		}
		return nil, err
	}
	return &t, nil
}

// EnsureIndexes creates the unique job id index the upsert relies on.
func (r *TranscriptRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func archiveUpdate(job domain.Job, now time.Time) (bson.M, bson.M) {
	filter := bson.M{"job_id": job.ID}
	update := bson.M{
		"$set": bson.M{
			"filename":   job.Filename,
			"owner":      job.Owner,
			"transcript": job.Transcript,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"job_id":      job.ID,
			"archived_at": now,
		},
	}
	return filter, update
}
