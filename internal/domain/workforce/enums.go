package workforce

// Specialty is a provider's clinical specialty.
type Specialty string

const (
	SpecialtyInternalMedicine  Specialty = "Internal Medicine"
	SpecialtyPediatrics        Specialty = "Pediatrics"
	SpecialtyEmergencyMedicine Specialty = "Emergency Medicine"
	SpecialtySurgery           Specialty = "Surgery"
	SpecialtyCardiology        Specialty = "Cardiology"
	SpecialtyOncology          Specialty = "Oncology"
)

var Specialties = []Specialty{
	SpecialtyInternalMedicine, SpecialtyPediatrics, SpecialtyEmergencyMedicine,
	SpecialtySurgery, SpecialtyCardiology, SpecialtyOncology,
}

func (s Specialty) Valid() bool {
	for _, v := range Specialties {
		if s == v {
			return true
		}
	}
	return false
}

// Department is the care setting a provider works in.
type Department string

const (
	DepartmentInpatient  Department = "Inpatient"
	DepartmentOutpatient Department = "Outpatient"
	DepartmentEmergency  Department = "Emergency"
	DepartmentSurgical   Department = "Surgical"
)

var Departments = []Department{
	DepartmentInpatient, DepartmentOutpatient, DepartmentEmergency, DepartmentSurgical,
}

func (d Department) Valid() bool {
	for _, v := range Departments {
		if d == v {
			return true
		}
	}
	return false
}

// FTEValues are the allowed full-time-equivalent fractions.
var FTEValues = []float64{0.5, 0.75, 1.0}

// ValidFTE reports whether f is one of FTEValues.
func ValidFTE(f float64) bool {
	for _, v := range FTEValues {
		if f == v {
			return true
		}
	}
	return false
}

// Acuity is the ordered severity of an encounter. The zero value is Low.
type Acuity int

const (
	AcuityLow Acuity = iota
	AcuityMedium
	AcuityHigh
	AcuityCritical
)

var Acuities = []Acuity{AcuityLow, AcuityMedium, AcuityHigh, AcuityCritical}

func (a Acuity) String() string {
	switch a {
	case AcuityLow:
		return "Low"
	case AcuityMedium:
		return "Medium"
	case AcuityHigh:
		return "High"
	case AcuityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

func (a Acuity) Valid() bool { return a >= AcuityLow && a <= AcuityCritical }

func (a Acuity) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// MinuteRange is an inclusive integer range of minutes.
type MinuteRange struct {
	Min int
	Max int
}

// Contains reports whether v lies within the inclusive range.
func (r MinuteRange) Contains(v int) bool { return v >= r.Min && v <= r.Max }

// DocumentationRange returns the documentation-minute range for the acuity.
// Higher acuity encounters take longer to chart.
func (a Acuity) DocumentationRange() MinuteRange {
	switch a {
	case AcuityMedium:
		return MinuteRange{10, 20}
	case AcuityHigh:
		return MinuteRange{20, 40}
	case AcuityCritical:
		return MinuteRange{40, 90}
	default:
		return MinuteRange{5, 10}
	}
}

// EncounterType classifies a patient visit.
type EncounterType string

const (
	EncounterOfficeVisit EncounterType = "Office Visit"
	EncounterProcedure   EncounterType = "Procedure"
	EncounterConsult     EncounterType = "Consult"
	EncounterFollowUp    EncounterType = "Follow-up"
)

var EncounterTypes = []EncounterType{
	EncounterOfficeVisit, EncounterProcedure, EncounterConsult, EncounterFollowUp,
}

// BurnoutStatus buckets an overall burnout score.
type BurnoutStatus string

const (
	BurnoutLow      BurnoutStatus = "Low"
	BurnoutMedium   BurnoutStatus = "Medium"
	BurnoutHigh     BurnoutStatus = "High"
	BurnoutCritical BurnoutStatus = "Critical"
)

// ClassifyBurnout maps a 0-100 score to its status bucket using the fixed
// 25/50/75 thresholds. Each threshold belongs to the higher bucket.
func ClassifyBurnout(score int) BurnoutStatus {
	switch {
	case score < 25:
		return BurnoutLow
	case score < 50:
		return BurnoutMedium
	case score < 75:
		return BurnoutHigh
	default:
		return BurnoutCritical
	}
}

// TaskType is the kind of administrative task assigned to a provider.
type TaskType string

const (
	TaskChartReview        TaskType = "Chart Review"
	TaskPhoneCall          TaskType = "Phone Call"
	TaskPriorAuthorization TaskType = "Prior Authorization"
	TaskLabReview          TaskType = "Lab Review"
	TaskImagingReview      TaskType = "Imaging Review"
	TaskPrescriptionRefill TaskType = "Prescription Refill"
)

var TaskTypes = []TaskType{
	TaskChartReview, TaskPhoneCall, TaskPriorAuthorization,
	TaskLabReview, TaskImagingReview, TaskPrescriptionRefill,
}

// EstimatedRange returns the inclusive estimated-minutes range for the task type.
func (t TaskType) EstimatedRange() MinuteRange {
	switch t {
	case TaskChartReview:
		return MinuteRange{10, 30}
	case TaskPhoneCall:
		return MinuteRange{5, 15}
	case TaskPriorAuthorization:
		return MinuteRange{20, 60}
	case TaskLabReview:
		return MinuteRange{5, 15}
	case TaskImagingReview:
		return MinuteRange{10, 25}
	case TaskPrescriptionRefill:
		return MinuteRange{3, 10}
	default:
		return MinuteRange{}
	}
}

type TaskPriority string

const (
	PriorityRoutine TaskPriority = "Routine"
	PriorityUrgent  TaskPriority = "Urgent"
	PrioritySTAT    TaskPriority = "STAT"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "Pending"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
)

var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskCompleted}
