package fesloader

// ImageRole says which staging rows an image produces besides its image row.
type ImageRole string

const (
	RoleCoveringLetter ImageRole = "covering-letter"
	RolePrimary        ImageRole = "primary"
	RoleAttachment     ImageRole = "attachment"
)

// PlanImageRoles assigns a role to each image in submission file order:
// covering letters stay covering letters, the first other image is the form's
// primary image and the rest become attachments.
func PlanImageRoles(images []Image) []ImageRole {
	roles := make([]ImageRole, len(images))
	primary, hasPrimary := PrimaryImageIndex(images)
	for i, img := range images {
		switch {
		case img.CoveringLetter:
			roles[i] = RoleCoveringLetter
		case hasPrimary && i == primary:
			roles[i] = RolePrimary
		default:
			roles[i] = RoleAttachment
		}
	}
	return roles
}

// FormRow holds the column values of the FES form insert. The OCR columns
// mirror the submitted values.
type FormRow struct {
	EnvelopeID       int64
	PrimaryImageID   int64
	Barcode          string
	CompanyNumber    string
	CompanyName      string
	FormType         string
	OCRCompanyNumber string
	OCRCompanyName   string
	OCRFormType      string
	PageCount        int
	SameDay          string
	BarcodeDate      string
}

// BuildFormRow derives the form insert from the model and allocated ids.
func BuildFormRow(m Model, envelopeID, primaryImageID int64) FormRow {
	return FormRow{
		EnvelopeID:       envelopeID,
		PrimaryImageID:   primaryImageID,
		Barcode:          m.Barcode,
		CompanyNumber:    m.CompanyNumber,
		CompanyName:      m.CompanyName,
		FormType:         m.FormType,
		OCRCompanyNumber: m.CompanyNumber,
		OCRCompanyName:   m.CompanyName,
		OCRFormType:      m.FormType,
		PageCount:        FormPageCount(m.Images),
		SameDay:          SameDayFlag(m.SameDay),
		BarcodeDate:      m.BarcodeDate.Format("20060102"),
	}
}
