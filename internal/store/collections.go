package store

import "errors"

// Remote collection names and their local cache keys.
const (
	RegulationsCollection = "regulations"
	RegulationsKey        = "local_regulations"

	AuditLogsCollection = "audit_logs"
	AuditLogsKey        = "local_audit_logs"

	MonitoringReportsCollection = "monitoring_reports"
	MonitoringReportsKey        = "local_monitoring_reports"

	RequirementsCollection = "build_requirements"
	RequirementsKey        = "local_build_requirements"

	// Local-only collections.
	TranslationLogsKey = "aide_translation_metrics"
	FeedbackKey        = "genie_feedback"
	DoseStudiesKey     = "aide_dose_workbooks"
	ICFDocumentsKey    = "aide_icf_documents"
)

// ErrNotFound is returned by services when no entity has the requested id.
var ErrNotFound = errors.New("not found")
