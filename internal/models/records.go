package models

// AppModule names the functional area an audit entry belongs to.
type AppModule string

const (
	ModuleTranslation   AppModule = "translation"
	ModuleMonitoring    AppModule = "monitoring-report"
	ModuleRequirements  AppModule = "requirement-tracking"
	ModuleChat          AppModule = "chat"
	ModuleDose          AppModule = "dose-management"
	ModuleDatabase      AppModule = "database"
	ModuleAuditLog      AppModule = "audit-log"
	ModuleSettings      AppModule = "settings"
	ModuleAuthorization AppModule = "auth"
	ModuleICF           AppModule = "icf-generator"
)

// AuditEntry is one user action recorded for the audit trail.
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Module    AppModule `json:"module"`
	Details   string    `json:"details"`
	IP        string    `json:"ip,omitempty"`
}

func (a AuditEntry) GetID() string { return a.ID }

// BuildRequirement is one entry of the requirement traceability matrix.
type BuildRequirement struct {
	ID        string   `json:"id"`
	Version   string   `json:"version"`
	Timestamp int64    `json:"timestamp"`
	Prompt    string   `json:"prompt"`
	Status    string   `json:"status"`
	Scope     []string `json:"scope"`
}

func (b BuildRequirement) GetID() string { return b.ID }

type ReportAudit struct {
	Explainability string  `json:"explainability"`
	Traceability   string  `json:"traceability"`
	ModelAccuracy  float64 `json:"modelAccuracy"`
	Timestamp      int64   `json:"timestamp"`
}

// MonitoringReportLog is a generated clinical monitoring visit report.
type MonitoringReportLog struct {
	ID               string      `json:"id"`
	ProjectNumber    string      `json:"projectNumber"`
	Sponsor          string      `json:"sponsor"`
	VisitDate        string      `json:"visitDate"`
	VisitNumber      string      `json:"visitNumber"`
	VisitType        string      `json:"visitType"`
	ContentHTML      string      `json:"contentHtml"`
	RawNotes         string      `json:"rawNotes"`
	FollowUpHTML     string      `json:"followUpHtml,omitempty"`
	ConfirmationHTML string      `json:"confirmationHtml,omitempty"`
	Audit            ReportAudit `json:"audit"`
}

func (m MonitoringReportLog) GetID() string { return m.ID }

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMessage is one turn of an assistant conversation. Never persisted.
type ChatMessage struct {
	ID                string   `json:"id"`
	Role              ChatRole `json:"role"`
	Text              string   `json:"text"`
	Timestamp         int64    `json:"timestamp"`
	GroundingMetadata []Source `json:"groundingMetadata,omitempty"`
}

// GenieFeedback is a user rating of the assistant.
type GenieFeedback struct {
	ID              string `json:"id"`
	Rating          int    `json:"rating"`
	Comment         string `json:"comment"`
	Timestamp       int64  `json:"timestamp"`
	QuerySnippet    string `json:"querySnippet,omitempty"`
	Topic           string `json:"topic,omitempty"`
	ResponseSnippet string `json:"responseSnippet,omitempty"`
}

func (f GenieFeedback) GetID() string { return f.ID }
