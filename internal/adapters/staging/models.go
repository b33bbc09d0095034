// Package staging implements the legacy FES staging gateway on gorm: named
// sequences, one DAO per staging table and the schema migration.
package staging

import "time"

// Sequence is a named counter. Values are handed out by atomic increment.
type Sequence struct {
	Name      string `gorm:"primaryKey;size:64"`
	LastValue int64  `gorm:"not null;default:0"`
}

func (Sequence) TableName() string { return "fes_sequences" }

// Batch is a scanning batch. Tables referenced by another table name their
// primary key field ID, so each association resolves as belongs-to and the
// foreign key sits on the child table.
type Batch struct {
	ID       int64     `gorm:"column:batch_id;primaryKey;autoIncrement:false"`
	Name     string    `gorm:"size:32;not null"`
	ScanTime time.Time `gorm:"not null"`
}

func (Batch) TableName() string { return "fes_batch" }

// Envelope groups the documents of one submission inside a batch.
type Envelope struct {
	ID      int64  `gorm:"column:envelope_id;primaryKey;autoIncrement:false"`
	BatchID int64  `gorm:"column:batch_id;index;not null"`
	Batch   *Batch `gorm:"foreignKey:BatchID;references:ID"`
}

func (Envelope) TableName() string { return "fes_envelope" }

// Image is one converted document.
type Image struct {
	ID   int64  `gorm:"column:image_id;primaryKey;autoIncrement:false"`
	Data []byte `gorm:"not null"`
}

func (Image) TableName() string { return "fes_image" }

// CoveringLetter points at the image of a covering letter.
type CoveringLetter struct {
	CoveringLetterID int64     `gorm:"column:covering_letter_id;primaryKey;autoIncrement:false"`
	EnvelopeID       int64     `gorm:"column:envelope_id;index;not null"`
	ImageID          int64     `gorm:"column:image_id;not null"`
	PageCount        int       `gorm:"not null"`
	Envelope         *Envelope `gorm:"foreignKey:EnvelopeID;references:ID"`
	Image            *Image    `gorm:"foreignKey:ImageID;references:ID"`
}

func (CoveringLetter) TableName() string { return "fes_covering_letter" }

// Form is the filed form. The OCR columns mirror the submitted values.
type Form struct {
	ID               int64     `gorm:"column:form_id;primaryKey;autoIncrement:false"`
	EnvelopeID       int64     `gorm:"column:envelope_id;index;not null"`
	ImageID          int64     `gorm:"column:image_id;not null"`
	Barcode          string    `gorm:"size:32;uniqueIndex;not null"`
	BarcodeDate      string    `gorm:"size:8;not null"`
	CompanyNumber    string    `gorm:"size:10;not null"`
	CompanyName      string    `gorm:"size:160;not null"`
	FormType         string    `gorm:"size:16;not null"`
	OCRCompanyNumber string    `gorm:"column:ocr_company_number;size:10"`
	OCRCompanyName   string    `gorm:"column:ocr_company_name;size:160"`
	OCRFormType      string    `gorm:"column:ocr_form_type;size:16"`
	PageCount        int       `gorm:"not null"`
	SameDay          string    `gorm:"size:1;not null;default:N"`
	Envelope         *Envelope `gorm:"foreignKey:EnvelopeID;references:ID"`
	Image            *Image    `gorm:"foreignKey:ImageID;references:ID"`
}

func (Form) TableName() string { return "fes_form" }

// Attachment links a further image to a form.
type Attachment struct {
	AttachmentID int64  `gorm:"column:attachment_id;primaryKey;autoIncrement:false"`
	FormID       int64  `gorm:"column:form_id;index;not null"`
	TypeID       int    `gorm:"column:type_id;not null"`
	ImageID      int64  `gorm:"column:image_id;not null"`
	Form         *Form  `gorm:"foreignKey:FormID;references:ID"`
	Image        *Image `gorm:"foreignKey:ImageID;references:ID"`
}

func (Attachment) TableName() string { return "fes_attachment" }

// Models lists every staging model in dependency order.
func Models() []any {
	return []any{
		&Sequence{}, &Batch{}, &Envelope{}, &Image{},
		&CoveringLetter{}, &Form{}, &Attachment{},
	}
}
