package advisory

import "text/template"

const systemPrompt = `You are an assistant for a vehicle service garage and fleet operator.
Answer only with a single JSON object matching the requested shape. Do not add commentary.`

var supportPrompt = template.Must(template.New("support").Parse(`You are a helpful customer support agent for the garage.
Reply to the customer using only the records below. If the records do not answer the question, say so politely and suggest contacting the service desk.

Customer: {{.CustomerName}} (ID: {{.CustomerID}})
Message: {{.Message}}

Service tickets (JSON): {{if .Complaints}}{{.Complaints}}{{else}}[]{{end}}
Invoices (JSON): {{if .Invoices}}{{.Invoices}}{{else}}[]{{end}}
Maintenance contract (JSON): {{if .AMC}}{{.AMC}}{{else}}null{{end}}

Respond as {"response": "<reply to the customer>"}.`))

var maintenancePrompt = template.Must(template.New("maintenance").Parse(`Predict upcoming maintenance needs for this vehicle.

Vehicle: {{.VehicleID}} - {{.Make}} {{.Model}} ({{.Year}})
Mileage: {{printf "%.0f" .MileageKm}} km
Engine hours: {{printf "%.1f" .EngineHours}}
Last service: {{if .LastServiceDate}}{{.LastServiceDate}}{{else}}unknown{{end}}
Service history: {{if .ServiceHistory}}{{.ServiceHistory}}{{else}}none recorded{{end}}
Sensor readings (JSON): {{if .SensorReadings}}{{.SensorReadings}}{{else}}none{{end}}
{{- if .KnownIssues}}
Known issues:
{{- range .KnownIssues}}
- {{.}}
{{- end}}
{{- end}}

Respond as {"predictions": [{"potentialIssue": string, "recommendedAction": string, "riskScore": number 0-100, "preventativeCost": number, "potentialFailureCost": number}]}.`))

var driverBehaviorPrompt = template.Must(template.New("driver").Parse(`Score this driver's behaviour from their telemetry.

Driver: {{.DriverID}}
Speeding incidents: {{.SpeedingIncidents}}
Harsh braking events: {{.HarshBrakingEvents}}
Idling time: {{printf "%.1f" .IdlingTimeMinutes}} minutes
Fuel consumed: {{printf "%.1f" .FuelConsumptionLiters}} litres

Respond as {"safetyScore": number 0-100, "fuelEfficiencyScore": number 0-100, "insights": [string]}.`))

var dataAnalysisPrompt = template.Must(template.New("data").Parse(`Analyse the dataset "{{.DatasetName}}" and report trends, anomalies and actions.

Data (JSON):
{{.DataJSON}}

Respond as {"keyTrends": [string], "anomalies": [string], "actionableInsights": [string], "summary": string}.`))
