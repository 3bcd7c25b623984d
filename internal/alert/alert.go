// Package alert defines the alert value that flows through the delivery pipeline.
//
// DESIGN: An Alert is an immutable value constructed by monitoring logic and
// handed to the dispatcher. Severity drives the emoji/label vocabulary shared
// by every channel formatter; provider-specific rendering (plain text, HTML,
// email template) lives with each sender, not here.
package alert

import "fmt"

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Emoji returns the severity indicator shared by all channels.
// Unknown severities fall back to a generic announcement marker.
func (s Severity) Emoji() string {
	switch s {
	case SeverityCritical:
		return "🚨"
	case SeverityWarning:
		return "⚠️"
	case SeverityInfo:
		return "ℹ️"
	default:
		return "📢"
	}
}

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Alert is one logical alert event. SensorData is optional structured
// context; values may be numbers or strings.
type Alert struct {
	AlertType  string         `json:"alertType"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	SensorData map[string]any `json:"sensorData,omitempty"`
}

// Validate checks the minimum shape required before dispatch.
func (a Alert) Validate() error {
	if a.AlertType == "" {
		return fmt.Errorf("alert type is required")
	}
	if a.Message == "" {
		return fmt.Errorf("alert message is required")
	}
	return nil
}

// Reading is one sensor value prepared for channel rendering.
type Reading struct {
	Emoji string
	Label string
	Value string
}

// Readings extracts the well-known sensor keys in a fixed order.
// Only keys the dashboard emits are rendered; anything else is ignored
// so formatter output stays deterministic.
func (a Alert) Readings() []Reading {
	if len(a.SensorData) == 0 {
		return nil
	}
	var out []Reading
	if v, ok := a.SensorData["air_temperature"]; ok {
		out = append(out, Reading{Emoji: "🌡️", Label: "Temperature", Value: formatMeasure(v, "°C")})
	}
	if v, ok := a.SensorData["air_humidity"]; ok {
		out = append(out, Reading{Emoji: "💧", Label: "Humidity", Value: formatMeasure(v, "%")})
	}
	if v, ok := a.SensorData["soil_moisture"]; ok {
		out = append(out, Reading{Emoji: "🌱", Label: "Soil Moisture", Value: formatMeasure(v, "")})
	}
	if v, ok := a.SensorData["battery_level"]; ok {
		out = append(out, Reading{Emoji: "🔋", Label: "Battery", Value: formatMeasure(v, "%")})
	}
	return out
}

// formatMeasure renders a sensor value. Numeric temperatures and humidity
// arrive as float64 from JSON and are shown with one decimal, matching the
// dashboard's rendering.
func formatMeasure(v any, unit string) string {
	switch n := v.(type) {
	case float64:
		if unit == "°C" || unit == "%" {
			return fmt.Sprintf("%.1f%s", n, unit)
		}
		return fmt.Sprintf("%g%s", n, unit)
	case int:
		return fmt.Sprintf("%d%s", n, unit)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// NewCriticalTemperature builds the alert raised when air temperature
// breaches the configured threshold.
func NewCriticalTemperature(temperature, threshold float64) Alert {
	return Alert{
		AlertType: "Critical Temperature Alert",
		Severity:  SeverityCritical,
		Message: fmt.Sprintf("Temperature has reached %.1f°C, exceeding the threshold of %g°C. Immediate attention required!",
			temperature, threshold),
		SensorData: map[string]any{"air_temperature": temperature},
	}
}

// NewLowBattery builds the alert raised when a sensor node battery runs low.
func NewLowBattery(batteryLevel float64, nodeID string) Alert {
	return Alert{
		AlertType: "Low Battery Alert",
		Severity:  SeverityWarning,
		Message: fmt.Sprintf("Sensor node %s battery is critically low at %g%%. Please replace batteries soon to avoid data loss.",
			nodeID, batteryLevel),
		SensorData: map[string]any{"battery_level": batteryLevel, "node_id": nodeID},
	}
}

// NewDrySoil builds the alert raised when soil moisture drops below threshold.
func NewDrySoil(soilMoisture, threshold float64) Alert {
	return Alert{
		AlertType: "Dry Soil Alert",
		Severity:  SeverityWarning,
		Message: fmt.Sprintf("Soil moisture has dropped to %g, below the optimal threshold of %g. Irrigation recommended.",
			soilMoisture, threshold),
		SensorData: map[string]any{"soil_moisture": soilMoisture, "threshold": threshold},
	}
}

// NewEquipment builds a maintenance alert. High priority issues escalate
// to critical severity.
func NewEquipment(equipment, issue, priority string) Alert {
	severity := SeverityWarning
	if priority == "high" {
		severity = SeverityCritical
	}
	return Alert{
		AlertType: fmt.Sprintf("%s Maintenance Required", equipment),
		Severity:  severity,
		Message:   fmt.Sprintf("%s: %s. Please schedule maintenance to prevent equipment failure.", equipment, issue),
		SensorData: map[string]any{
			"equipment": equipment,
			"issue":     issue,
			"priority":  priority,
		},
	}
}

// NewWeather builds a weather condition alert.
func NewWeather(condition, details string) Alert {
	return Alert{
		AlertType:  "Weather Alert",
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf("%s: %s", condition, details),
		SensorData: map[string]any{"weather_condition": condition},
	}
}
