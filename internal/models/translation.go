package models

type FunctionalGroup string

const (
	GroupClinicalOperations FunctionalGroup = "Clinical Operations"
	GroupRegulatoryAffairs  FunctionalGroup = "Regulatory Affairs"
	GroupQualityAssurance   FunctionalGroup = "Quality Assurance"
	GroupPharmacovigilance  FunctionalGroup = "Pharmacovigilance"
	GroupOther              FunctionalGroup = "Other Functions"
)

type TranslationDocType string

const (
	DocEssentialDocuments    TranslationDocType = "Essential Documents"
	DocRegulatorySubmissions TranslationDocType = "IRB/EC/Regulatory Submissions"
	DocPatientFacing         TranslationDocType = "Patient Facing Materials"
	DocProtocolTechnical     TranslationDocType = "Protocol and Other Technical Documents"
	DocCommunication         TranslationDocType = "Communication"
)

type TranslationDimension string

const (
	DimensionPatientCentric    TranslationDimension = "Patient Centric"
	DimensionRegulatoryFocused TranslationDimension = "Regulatory Focused"
	DimensionMedicalAccuracy   TranslationDimension = "Medical Accuracy"
	DimensionLegalAspects      TranslationDimension = "Legal Aspects"
)

// MQMSeverity is the Multidimensional Quality Metrics error severity.
type MQMSeverity string

const (
	SeverityMinor    MQMSeverity = "Minor"
	SeverityMajor    MQMSeverity = "Major"
	SeverityCritical MQMSeverity = "Critical"
)

// Valid reports whether s is a known severity.
func (s MQMSeverity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// MQMType is the Multidimensional Quality Metrics error class.
type MQMType string

const (
	TypeTerminology MQMType = "Terminology"
	TypeAccuracy    MQMType = "Accuracy"
	TypeFluency     MQMType = "Fluency"
	TypeStyle       MQMType = "Style"
)

func (t MQMType) Valid() bool {
	switch t {
	case TypeTerminology, TypeAccuracy, TypeFluency, TypeStyle:
		return true
	}
	return false
}

// QCStatus is the state of a translation job.
type QCStatus string

const (
	QCDraft      QCStatus = "Draft"
	QCPending    QCStatus = "QC Pending"
	QCFinalized  QCStatus = "QC Finalized"
	QCDownloaded QCStatus = "Downloaded"
)

// CorrectionRationale records one reviewer intervention on a translated word.
type CorrectionRationale struct {
	OriginalText string      `json:"originalText"`
	UpdatedText  string      `json:"updatedText"`
	Rationale    string      `json:"rationale"`
	Timestamp    int64       `json:"timestamp"`
	PageIndex    int         `json:"pageIndex"`
	WordIndex    int         `json:"wordIndex"`
	MQMSeverity  MQMSeverity `json:"mqmSeverity"`
	MQMType      MQMType     `json:"mqmType"`
}

type WorkflowTimeCode struct {
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
}

// TranslationLog is the persisted metadata of a translation job.
type TranslationLog struct {
	ID                    string                `json:"id"`
	TrackingID            string                `json:"trackingId"`
	FunctionalGroup       FunctionalGroup       `json:"functionalGroup"`
	DocType               TranslationDocType    `json:"docType"`
	Dimension             TranslationDimension  `json:"dimension,omitempty"`
	CulturalNuances       bool                  `json:"culturalNuances,omitempty"`
	PageRange             string                `json:"pageRange,omitempty"`
	ProjectNumber         string                `json:"projectNumber"`
	Timestamp             int64                 `json:"timestamp"`
	SourceLanguage        string                `json:"sourceLanguage"`
	TargetLanguage        string                `json:"targetLanguage"`
	WordCount             int                   `json:"wordCount"`
	CharCount             int                   `json:"charCount"`
	TokenCount            int                   `json:"tokenCount"`
	PageCount             int                   `json:"pageCount"`
	Mode                  string                `json:"mode"`
	Provider              string                `json:"provider"`
	QualityScore          float64               `json:"qualityScore"`
	MQMErrorScore         float64               `json:"mqmErrorScore"`
	Status                QCStatus              `json:"status"`
	HumanCorrectionVolume int                   `json:"humanCorrectionVolume"`
	QCTimeSpentSeconds    int                   `json:"qcTimeSpentSeconds"`
	WorkflowTimeCodes     []WorkflowTimeCode    `json:"workflowTimeCodes"`
	EstimatedCost         float64               `json:"estimatedCost"`
	Rationales            []CorrectionRationale `json:"rationales"`
	BackTranslation       []string              `json:"backTranslation,omitempty"`
	QCReviewerName        string                `json:"qcReviewerName,omitempty"`
	CertifiedAt           int64                 `json:"certifiedAt,omitempty"`
}

func (l TranslationLog) GetID() string { return l.ID }
