package functional

// FunctionalConfiguration is the document served by the configuration API at
// GET/PUT {base}/{profile}. Every scalar is a pointer so values the API did not
// send stay absent when the document is written back.
type FunctionalConfiguration struct {
	AccountManagement *AccountManagement `json:"accountManagement,omitempty" yaml:"accountManagement,omitempty"`
	ProximityTracing  *ProximityTracing  `json:"proximityTracing,omitempty" yaml:"proximityTracing,omitempty"`
}

type AccountManagement struct {
	AppAutonomy             *int `json:"appAutonomy,omitempty" yaml:"appAutonomy,omitempty"`
	MaxSimultaneousRegister *int `json:"maxSimultaneousRegister,omitempty" yaml:"maxSimultaneousRegister,omitempty"`
}

type ProximityTracing struct {
	App           *App     `json:"app,omitempty" yaml:"app,omitempty"`
	Ble           *Ble     `json:"ble,omitempty" yaml:"ble,omitempty"`
	RiskThreshold *float64 `json:"riskThreshold,omitempty" yaml:"riskThreshold,omitempty"`
	RSSI1m        *int     `json:"rssi1m,omitempty" yaml:"rssi1m,omitempty"`
	Mu0           *int     `json:"mu0,omitempty" yaml:"mu0,omitempty"`
	R0            *float64 `json:"r0,omitempty" yaml:"r0,omitempty"`
}

type App struct {
	CheckStatusFrequency *int `json:"checkStatusFrequency,omitempty" yaml:"checkStatusFrequency,omitempty"`
	DataRetentionPeriod  *int `json:"dataRetentionPeriod,omitempty" yaml:"dataRetentionPeriod,omitempty"`
}

// Ble holds the Bluetooth Low Energy scoring constants. Wire names keep the
// API's historical spelling (riskSeuilLow, dSeuil...).
type Ble struct {
	SimultaneousContacts      *int                `json:"nContacts,omitempty" yaml:"nContacts,omitempty"`
	SignalCalibrationPerModel []SignalCalibration `json:"signalCalibrationPerModel,omitempty" yaml:"signalCalibrationPerModel,omitempty"`
	TWin                      *int                `json:"twin,omitempty" yaml:"twin,omitempty"`
	TOverlap                  *int                `json:"tOverlap,omitempty" yaml:"tOverlap,omitempty"`
	Delta                     []int               `json:"delta,omitempty" yaml:"delta,omitempty"`
	P0                        *int                `json:"p0,omitempty" yaml:"p0,omitempty"`
	MinSampling               *int                `json:"minSampling,omitempty" yaml:"minSampling,omitempty"`
	A                         *int                `json:"a,omitempty" yaml:"a,omitempty"`
	B                         *int                `json:"b,omitempty" yaml:"b,omitempty"`
	MaxSampleSize             *int                `json:"maxSampleSize,omitempty" yaml:"maxSampleSize,omitempty"`
	RiskThresholdLow          *float64            `json:"riskSeuilLow,omitempty" yaml:"riskSeuilLow,omitempty"`
	RiskThresholdMax          *float64            `json:"riskSeuilMax,omitempty" yaml:"riskSeuilMax,omitempty"`
	RiskMin                   *int                `json:"riskMin,omitempty" yaml:"riskMin,omitempty"`
	RiskMax                   *int                `json:"riskMax,omitempty" yaml:"riskMax,omitempty"`
	DThreshold                *int                `json:"dSeuil,omitempty" yaml:"dSeuil,omitempty"`
	RSSIThreshold             *int                `json:"rssiSeuil,omitempty" yaml:"rssiSeuil,omitempty"`
	G0Tx                      *int                `json:"g0tx,omitempty" yaml:"g0tx,omitempty"`
	TagPeaks                  *int                `json:"tagPeaks,omitempty" yaml:"tagPeaks,omitempty"`
	TagCalib                  *int                `json:"tagCalib,omitempty" yaml:"tagCalib,omitempty"`
}

// SignalCalibration is the per device model gain correction.
type SignalCalibration struct {
	Model         string `json:"model" yaml:"model"`
	EmissionGain  *int   `json:"emissionGain,omitempty" yaml:"emissionGain,omitempty"`
	ReceptionGain *int   `json:"receptionGain,omitempty" yaml:"receptionGain,omitempty"`
}

// Result strings returned as plain text by PUT {base}/{profile}.
const (
	ResultUpdated          = "Configuration updated"
	ResultUpdateFailed     = "Configuration update failed"
	ResultNothingToUpdate  = "Nothing to update"
	ResultUpdatedNoRefresh = "Configuration updated but no instance refreshed"
)

// Change describes one leaf that differs between two configurations.
type Change struct {
	Key          string `json:"key" yaml:"key"`
	CurrentValue any    `json:"currentValue" yaml:"currentValue"`
	NewValue     any    `json:"newValue" yaml:"newValue"`
}

// Int and Float build pointer values for literals.
func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }
