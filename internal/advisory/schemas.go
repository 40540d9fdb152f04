package advisory

// SupportInput carries a customer's message plus JSON snapshots of their records.
type SupportInput struct {
	CustomerID   string `json:"customerId" validate:"required"`
	CustomerName string `json:"customerName" validate:"required"`
	Message      string `json:"message" validate:"required,max=4000"`
	Complaints   string `json:"complaints" validate:"omitempty,json"`
	Invoices     string `json:"invoices" validate:"omitempty,json"`
	AMC          string `json:"amc" validate:"omitempty,json"`
}

type SupportOutput struct {
	Response string `json:"response" validate:"required"`
}

// MaintenanceInput describes a vehicle's telemetry and service history.
type MaintenanceInput struct {
	VehicleID       string   `json:"vehicleId" validate:"required"`
	Make            string   `json:"make" validate:"required"`
	Model           string   `json:"model" validate:"required"`
	Year            int      `json:"year" validate:"gte=1950,lte=2100"`
	MileageKm       float64  `json:"mileageKm" validate:"gte=0"`
	EngineHours     float64  `json:"engineHours" validate:"gte=0"`
	LastServiceDate string   `json:"lastServiceDate" validate:"omitempty,datetime=2006-01-02"`
	ServiceHistory  string   `json:"serviceHistory" validate:"max=8000"`
	SensorReadings  string   `json:"sensorReadings" validate:"omitempty,json"`
	KnownIssues     []string `json:"knownIssues" validate:"dive,required"`
}

type MaintenancePrediction struct {
	PotentialIssue       string   `json:"potentialIssue" validate:"required"`
	RecommendedAction    string   `json:"recommendedAction" validate:"required"`
	RiskScore            *float64 `json:"riskScore" validate:"required,gte=0,lte=100"`
	PreventativeCost     *float64 `json:"preventativeCost" validate:"required,gte=0"`
	PotentialFailureCost *float64 `json:"potentialFailureCost" validate:"required,gte=0"`
}

type MaintenanceOutput struct {
	Predictions []MaintenancePrediction `json:"predictions" validate:"required,dive"`
}

// DriverBehaviorInput aggregates one driver's telemetry counters.
type DriverBehaviorInput struct {
	DriverID              string  `json:"driverId" validate:"required"`
	SpeedingIncidents     int     `json:"speedingIncidents" validate:"gte=0"`
	HarshBrakingEvents    int     `json:"harshBrakingEvents" validate:"gte=0"`
	IdlingTimeMinutes     float64 `json:"idlingTimeMinutes" validate:"gte=0"`
	FuelConsumptionLiters float64 `json:"fuelConsumptionLiters" validate:"gte=0"`
}

type DriverBehaviorOutput struct {
	SafetyScore         *float64 `json:"safetyScore" validate:"required,gte=0,lte=100"`
	FuelEfficiencyScore *float64 `json:"fuelEfficiencyScore" validate:"required,gte=0,lte=100"`
	Insights            []string `json:"insights" validate:"required,dive,required"`
}

// DataAnalysisInput names a dataset and carries it as JSON text.
type DataAnalysisInput struct {
	DatasetName string `json:"datasetName" validate:"required,max=200"`
	DataJSON    string `json:"dataJson" validate:"required,json,max=200000"`
}

type DataAnalysisOutput struct {
	KeyTrends          []string `json:"keyTrends" validate:"required"`
	Anomalies          []string `json:"anomalies" validate:"required"`
	ActionableInsights []string `json:"actionableInsights" validate:"required"`
	Summary            string   `json:"summary" validate:"required"`
}
