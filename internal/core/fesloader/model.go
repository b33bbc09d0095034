// Package fesloader contains the pure translation of a ready submission into
// the FES staging hierarchy: the loader model, the load plan and load errors.
package fesloader

import (
	"errors"
	"fmt"
	"time"
)

// Stage names a step of the staging load.
type Stage string

const (
	StageModel          Stage = "model"
	StageBatch          Stage = "batch"
	StageEnvelope       Stage = "envelope"
	StageImage          Stage = "image"
	StageCoveringLetter Stage = "covering-letter"
	StageForm           Stage = "form"
	StageAttachment     Stage = "attachment"
)

// Sequence names shared by the staging writers.
const (
	SequenceBatch          = "BATCH"
	SequenceEnvelope       = "ENVELOPE"
	SequenceImage          = "IMAGE"
	SequenceCoveringLetter = "COVERING_LETTER"
	SequenceForm           = "FORM"
	SequenceAttachment     = "ATTACHMENT"
)

// Sequences returns every sequence the staging schema must provide.
func Sequences() []string {
	return []string{
		SequenceBatch, SequenceEnvelope, SequenceImage,
		SequenceCoveringLetter, SequenceForm, SequenceAttachment,
	}
}

// LoaderError reports a failed load and the stage it failed in. Rows written
// by earlier stages are left in place.
type LoaderError struct {
	SubmissionID string
	Stage        Stage
	Err          error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("FES load of submission %s failed at %s stage: %v", e.SubmissionID, e.Stage, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// StageOf returns the failed stage if err is a LoaderError.
func StageOf(err error) (Stage, bool) {
	var le *LoaderError
	if errors.As(err, &le) {
		return le.Stage, true
	}
	return "", false
}

// Image is one converted file ready for FES.
type Image struct {
	FileID         string
	Data           []byte
	PageCount      int
	CoveringLetter bool
}

// Model is the transient description of one submission's FES load.
type Model struct {
	SubmissionID  string
	Barcode       string
	CompanyName   string
	CompanyNumber string
	FormType      string
	SameDay       bool
	BarcodeDate   time.Time
	Images        []Image
}

// ModelInput carries the submission fields the model is built from.
type ModelInput struct {
	SubmissionID  string
	Barcode       string
	CompanyName   string
	CompanyNumber string
	FormType      string
	SameDay       bool
	SubmittedAt   time.Time
	Images        []Image
}

// BuildModel validates the input and assembles the loader model. The barcode
// date is the day the submission was made, in UTC.
func BuildModel(in ModelInput) (Model, error) {
	if in.Barcode == "" {
		return Model{}, fmt.Errorf("submission %s has no barcode", in.SubmissionID)
	}
	if in.CompanyNumber == "" {
		return Model{}, fmt.Errorf("submission %s has no company number", in.SubmissionID)
	}
	if _, ok := PrimaryImageIndex(in.Images); !ok {
		return Model{}, fmt.Errorf("submission %s has no form image", in.SubmissionID)
	}
	for _, img := range in.Images {
		if len(img.Data) == 0 {
			return Model{}, fmt.Errorf("submission %s: converted file for %s is empty", in.SubmissionID, img.FileID)
		}
	}

	submitted := in.SubmittedAt.UTC()
	return Model{
		SubmissionID:  in.SubmissionID,
		Barcode:       in.Barcode,
		CompanyName:   in.CompanyName,
		CompanyNumber: in.CompanyNumber,
		FormType:      in.FormType,
		SameDay:       in.SameDay,
		BarcodeDate:   time.Date(submitted.Year(), submitted.Month(), submitted.Day(), 0, 0, 0, 0, time.UTC),
		Images:        in.Images,
	}, nil
}

// PrimaryImageIndex returns the index of the first non-covering-letter image.
func PrimaryImageIndex(images []Image) (int, bool) {
	for i, img := range images {
		if !img.CoveringLetter {
			return i, true
		}
	}
	return -1, false
}

// FormPageCount sums the pages of every non-covering-letter image.
func FormPageCount(images []Image) int {
	total := 0
	for _, img := range images {
		if !img.CoveringLetter {
			total += img.PageCount
		}
	}
	return total
}

// SameDayFlag encodes the same-day flag the way FES expects it.
func SameDayFlag(sameDay bool) string {
	if sameDay {
		return "Y"
	}
	return "N"
}
