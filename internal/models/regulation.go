package models

// Category is the regulatory subject area of an entry.
type Category string

const (
	CategoryClinicalResearch      Category = "Clinical Research & Trials"
	CategoryManufacturing         Category = "Manufacturing & Quality Systems"
	CategoryPharmacovigilance     Category = "Pharmacovigilance & Drug Safety"
	CategoryRegulatorySubmissions Category = "Regulatory Submissions & Compliance"
	CategoryMedicalDevices        Category = "Medical Devices & Diagnostics"
	CategoryBiologics             Category = "Biotechnology, Biologics & Biosimilars"
	CategoryDataIntegrity         Category = "Data Integrity & Electronic Records"
	CategoryQualityAssurance      Category = "Quality Assurance & Risk Management"
	CategoryAdvertising           Category = "Advertising, Promotion & Labeling"
	CategoryDrugDevelopment       Category = "Drug Development & Regulatory Science"
	CategoryControlledSubstances  Category = "Controlled Substances & Safety Controls"
	CategoryMarketAccess          Category = "Health Technology Assessment & Market Access"
	CategoryPrivacy               Category = "Privacy, Security & Compliance"
	CategoryEnvironmental         Category = "Environmental, Occupational & Facility Regulations"
	CategorySupplyChain           Category = "Supply Chain, Import/Export & Logistics"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryClinicalResearch,
	CategoryManufacturing,
	CategoryPharmacovigilance,
	CategoryRegulatorySubmissions,
	CategoryMedicalDevices,
	CategoryBiologics,
	CategoryDataIntegrity,
	CategoryQualityAssurance,
	CategoryAdvertising,
	CategoryDrugDevelopment,
	CategoryControlledSubstances,
	CategoryMarketAccess,
	CategoryPrivacy,
	CategoryEnvironmental,
	CategorySupplyChain,
}

// Region groups countries under a lead authority.
type Region string

const (
	RegionUS     Region = "United States (FDA)"
	RegionEU     Region = "European Union (EMA)"
	RegionAPAC   Region = "Asia Pacific"
	RegionGlobal Region = "Global (ICH/WHO)"
	RegionUK     Region = "United Kingdom (MHRA)"
)

// Regions lists every region.
var Regions = []Region{RegionUS, RegionEU, RegionAPAC, RegionGlobal, RegionUK}

// RegionShortNames maps a region to its dashboard label.
var RegionShortNames = map[Region]string{
	RegionUS:     "US",
	RegionEU:     "EU",
	RegionAPAC:   "APAC",
	RegionGlobal: "Global",
	RegionUK:     "UK",
}

type ImpactLevel string

const (
	ImpactHigh    ImpactLevel = "High"
	ImpactMedium  ImpactLevel = "Medium"
	ImpactLow     ImpactLevel = "Low"
	ImpactUnknown ImpactLevel = "Unknown"
)

type RegulationStatus string

const (
	StatusDraft        RegulationStatus = "Draft"
	StatusFinal        RegulationStatus = "Final"
	StatusConsultation RegulationStatus = "Consultation"
)

// RegulationEntry is one tracked regulation, guidance or consultation.
type RegulationEntry struct {
	ID            string           `json:"id"`
	TrackingID    string           `json:"trackingId,omitempty"`
	Title         string           `json:"title"`
	Agency        string           `json:"agency"`
	Region        Region           `json:"region"`
	Country       string           `json:"country"`
	Date          string           `json:"date"`
	EffectiveDate string           `json:"effectiveDate,omitempty"`
	Category      Category         `json:"category"`
	Summary       string           `json:"summary"`
	Impact        ImpactLevel      `json:"impact"`
	Status        RegulationStatus `json:"status"`
	Content       string           `json:"content"`
	URL           string           `json:"url,omitempty"`
	RiskLevel     string           `json:"riskLevel,omitempty"`
	RiskRationale string           `json:"riskRationale,omitempty"`
	AdminApproved bool             `json:"adminApproved,omitempty"`
	LastChecked   int64            `json:"lastChecked,omitempty"`
	IsNew         bool             `json:"isNew,omitempty"`
}

func (r RegulationEntry) GetID() string { return r.ID }

// AnalysisResult is the AI impact assessment of a regulation.
type AnalysisResult struct {
	Summary              string   `json:"summary"`
	OperationalImpact    string   `json:"operationalImpact"`
	ComplianceRisk       string   `json:"complianceRisk"`
	RiskRationale        string   `json:"riskRationale"`
	KeyChanges           []string `json:"keyChanges"`
	RiskLevel            string   `json:"riskLevel"`
	MitigationStrategies []string `json:"mitigationStrategies"`
	ActionItems          []string `json:"actionItems"`
}

// NewsItem is a regulatory news headline with a verified source URL.
type NewsItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content,omitempty"`
	Date    string `json:"date"`
	Source  string `json:"source"`
	URL     string `json:"url"`
}

// Source is a grounding citation returned with a web-search answer.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// TMFDocument is one artifact of a Trial Master File checklist.
type TMFDocument struct {
	Zone             string `json:"zone"`
	DocumentName     string `json:"documentName"`
	Description      string `json:"description"`
	Mandatory        bool   `json:"mandatory"`
	LocalRequirement string `json:"localRequirement,omitempty"`
}

// DatabaseFilters holds the multi-select filter state of the database view.
// An empty slice means "no constraint".
type DatabaseFilters struct {
	Status   []string `json:"status,omitempty" form:"status"`
	Impact   []string `json:"impact,omitempty" form:"impact"`
	Category []string `json:"category,omitempty" form:"category"`
	Region   []string `json:"region,omitempty" form:"region"`
	Country  []string `json:"country,omitempty" form:"country"`
	Search   string   `json:"search,omitempty" form:"q"`
}
