// Package mongo contains the MongoDB implementation of the submission store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	coresubmission "github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ports/secondary"
)

// CollectionName is the collection holding submission documents.
const CollectionName = "submissions"

// Connect opens a client and checks the server is reachable.
func Connect(ctx context.Context, uri string) (*mongodriver.Client, error) {
	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// SubmissionRepository implements secondary.SubmissionRepository on a
// MongoDB collection. Writes are conditional on the stored version or status.
type SubmissionRepository struct {
	coll *mongodriver.Collection
}

// NewSubmissionRepository creates a repository on the submissions collection of db.
func NewSubmissionRepository(db *mongodriver.Database) *SubmissionRepository {
	return &SubmissionRepository{coll: db.Collection(CollectionName)}
}

type fileDocument struct {
	FileID           string `bson:"file_id"`
	FileName         string `bson:"file_name"`
	ConversionStatus string `bson:"conversion_status"`
	ConvertedFileID  string `bson:"converted_file_id,omitempty"`
	CoveringLetter   bool   `bson:"covering_letter,omitempty"`
}

// submissionDocument is the stored shape. An unset barcode is omitted so the
// partial unique index only covers issued barcodes.
type submissionDocument struct {
	ID                    string         `bson:"_id"`
	Status                string         `bson:"status"`
	Files                 []fileDocument `bson:"files"`
	ConfirmationReference string         `bson:"confirmation_reference,omitempty"`
	PresenterEmail        string         `bson:"presenter_email"`
	CompanyNumber         string         `bson:"company_number"`
	CompanyName           string         `bson:"company_name"`
	FormType              string         `bson:"form_type"`
	FormCategory          string         `bson:"form_category,omitempty"`
	SameDay               bool           `bson:"same_day"`
	FeeOnSubmission       string         `bson:"fee_on_submission,omitempty"`
	PaymentReference      string         `bson:"payment_reference,omitempty"`
	Barcode               string         `bson:"barcode,omitempty"`
	CreatedAt             time.Time      `bson:"created_at"`
	SubmittedAt           *time.Time     `bson:"submitted_at,omitempty"`
	LastModifiedAt        time.Time      `bson:"last_modified_at"`
	Version               int64          `bson:"version"`
}

func toDocument(s *secondary.SubmissionRecord) submissionDocument {
	doc := submissionDocument{
		ID:                    s.ID,
		Status:                string(s.Status),
		Files:                 make([]fileDocument, len(s.Files)),
		ConfirmationReference: s.ConfirmationReference,
		PresenterEmail:        s.PresenterEmail,
		CompanyNumber:         s.CompanyNumber,
		CompanyName:           s.CompanyName,
		FormType:              s.FormType,
		FormCategory:          s.FormCategory,
		SameDay:               s.SameDay,
		FeeOnSubmission:       s.FeeOnSubmission,
		PaymentReference:      s.PaymentReference,
		Barcode:               s.Barcode,
		CreatedAt:             s.CreatedAt.UTC(),
		LastModifiedAt:        s.LastModifiedAt.UTC(),
		Version:               s.Version,
	}
	for i, f := range s.Files {
		doc.Files[i] = fileDocument{
			FileID:           f.FileID,
			FileName:         f.FileName,
			ConversionStatus: string(f.ConversionStatus),
			ConvertedFileID:  f.ConvertedFileID,
			CoveringLetter:   f.CoveringLetter,
		}
	}
	if !s.SubmittedAt.IsZero() {
		submitted := s.SubmittedAt.UTC()
		doc.SubmittedAt = &submitted
	}
	return doc
}

func fromDocument(doc *submissionDocument) *secondary.SubmissionRecord {
	rec := &secondary.SubmissionRecord{
		ID:                    doc.ID,
		Status:                coresubmission.Status(doc.Status),
		Files:                 make([]secondary.FileRecord, len(doc.Files)),
		ConfirmationReference: doc.ConfirmationReference,
		PresenterEmail:        doc.PresenterEmail,
		CompanyNumber:         doc.CompanyNumber,
		CompanyName:           doc.CompanyName,
		FormType:              doc.FormType,
		FormCategory:          doc.FormCategory,
		SameDay:               doc.SameDay,
		FeeOnSubmission:       doc.FeeOnSubmission,
		PaymentReference:      doc.PaymentReference,
		Barcode:               doc.Barcode,
		CreatedAt:             doc.CreatedAt.UTC(),
		LastModifiedAt:        doc.LastModifiedAt.UTC(),
		Version:               doc.Version,
	}
	for i, f := range doc.Files {
		rec.Files[i] = secondary.FileRecord{
			FileID:           f.FileID,
			FileName:         f.FileName,
			ConversionStatus: coresubmission.FileStatus(f.ConversionStatus),
			ConvertedFileID:  f.ConvertedFileID,
			CoveringLetter:   f.CoveringLetter,
		}
	}
	if doc.SubmittedAt != nil {
		rec.SubmittedAt = doc.SubmittedAt.UTC()
	}
	return rec
}

// EnsureIndexes creates the indexes the sweeps and the barcode lookup rely on.
func (r *SubmissionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "last_modified_at", Value: 1}},
			Options: options.Index().SetName("status_last_modified"),
		},
		{
			Keys: bson.D{{Key: "barcode", Value: 1}},
			Options: options.Index().
				SetName("barcode_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"barcode": bson.M{"$type": "string"}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create submission indexes: %w", err)
	}
	return nil
}

// Create persists a new submission with version 1.
func (r *SubmissionRepository) Create(ctx context.Context, s *secondary.SubmissionRecord) error {
	doc := toDocument(s)
	doc.Version = 1
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("submission %s: %w", s.ID, secondary.ErrConflict)
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	s.Version = 1
	return nil
}

// Read retrieves a submission by its ID.
func (r *SubmissionRepository) Read(ctx context.Context, id string) (*secondary.SubmissionRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "submission "+id)
}

// ReadByBarcode retrieves the submission carrying a barcode.
func (r *SubmissionRepository) ReadByBarcode(ctx context.Context, barcode string) (*secondary.SubmissionRecord, error) {
	return r.findOne(ctx, bson.M{"barcode": barcode}, "barcode "+barcode)
}

func (r *SubmissionRepository) findOne(ctx context.Context, filter bson.M, what string) (*secondary.SubmissionRecord, error) {
	var doc submissionDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", what, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return fromDocument(&doc), nil
}

// UpdateSubmission replaces the stored document if its version is unchanged.
func (r *SubmissionRepository) UpdateSubmission(ctx context.Context, s *secondary.SubmissionRecord) error {
	doc := toDocument(s)
	doc.Version = s.Version + 1

	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": s.ID, "version": s.Version}, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("submission %s: %w", s.ID, secondary.ErrConflict)
		}
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if err := r.checkConditionalWrite(ctx, result, bson.M{"_id": s.ID}, "submission "+s.ID); err != nil {
		return err
	}

	s.Version++
	return nil
}

// UpdateSubmissionStatus moves a submission from one status to another.
func (r *SubmissionRepository) UpdateSubmissionStatus(ctx context.Context, id string, from, to coresubmission.Status, at time.Time) error {
	return r.updateStatus(ctx, bson.M{"_id": id}, from, to, at, "submission "+id)
}

// UpdateSubmissionStatusByBarcode moves the submission carrying barcode from one status to another.
func (r *SubmissionRepository) UpdateSubmissionStatusByBarcode(ctx context.Context, barcode string, from, to coresubmission.Status, at time.Time) error {
	return r.updateStatus(ctx, bson.M{"barcode": barcode}, from, to, at, "barcode "+barcode)
}

func (r *SubmissionRepository) updateStatus(ctx context.Context, key bson.M, from, to coresubmission.Status, at time.Time, what string) error {
	filter := bson.M{"status": string(from)}
	for k, v := range key {
		filter[k] = v
	}
	update := bson.M{
		"$set": bson.M{"status": string(to), "last_modified_at": at.UTC()},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update status of %s: %w", what, err)
	}
	return r.checkConditionalWrite(ctx, result, key, what)
}

// UpdateBarcode sets the barcode of a submission that has none yet.
func (r *SubmissionRepository) UpdateBarcode(ctx context.Context, id, barcode string, at time.Time) error {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"barcode": bson.M{"$exists": false}},
			bson.M{"barcode": ""},
		},
	}
	update := bson.M{
		"$set": bson.M{"barcode": barcode, "last_modified_at": at.UTC()},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("barcode %s already issued: %w", barcode, secondary.ErrConflict)
		}
		return fmt.Errorf("failed to set barcode: %w", err)
	}
	return r.checkConditionalWrite(ctx, result, bson.M{"_id": id}, "submission "+id)
}

// FindByStatus returns up to limit submissions in a status, oldest first.
func (r *SubmissionRepository) FindByStatus(ctx context.Context, status coresubmission.Status, limit int) ([]*secondary.SubmissionRecord, error) {
	opts := oldestFirst()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"status": string(status)}, opts)
}

// FindDelayedSubmissions returns submissions in status last modified at or before olderThan.
func (r *SubmissionRepository) FindDelayedSubmissions(ctx context.Context, status coresubmission.Status, olderThan time.Time) ([]*secondary.SubmissionRecord, error) {
	filter := bson.M{
		"status":           string(status),
		"last_modified_at": bson.M{"$lte": olderThan.UTC()},
	}
	return r.find(ctx, filter, oldestFirst())
}

// FindPaidSubmissions returns paid submissions in statuses submitted at or after since.
func (r *SubmissionRepository) FindPaidSubmissions(ctx context.Context, statuses []coresubmission.Status, since time.Time) ([]*secondary.SubmissionRecord, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	in := make(bson.A, len(statuses))
	for i, s := range statuses {
		in[i] = string(s)
	}
	filter := bson.M{
		"status":            bson.M{"$in": in},
		"payment_reference": bson.M{"$exists": true, "$ne": ""},
		"submitted_at":      bson.M{"$gte": since.UTC()},
	}
	return r.find(ctx, filter, oldestFirst())
}

func oldestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "last_modified_at", Value: 1}, {Key: "_id", Value: 1}})
}

func (r *SubmissionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*secondary.SubmissionRecord, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []submissionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}

	records := make([]*secondary.SubmissionRecord, len(docs))
	for i := range docs {
		records[i] = fromDocument(&docs[i])
	}
	return records, nil
}

// checkConditionalWrite tells a lost race (ErrConflict) from a missing
// document (ErrNotFound) when a conditional write matched nothing.
func (r *SubmissionRepository) checkConditionalWrite(ctx context.Context, result *mongodriver.UpdateResult, key bson.M, what string) error {
	if result.MatchedCount > 0 {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, secondary.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, secondary.ErrConflict)
}

// Ensure SubmissionRepository implements the interface
var _ secondary.SubmissionRepository = (*SubmissionRepository)(nil)
