package entity

// EmailMetrics aggregates delivery-log rows over a reporting window.
// Delivered excludes hard bounces; rates are relative to Delivered.
type EmailMetrics struct {
	Sent         int64   `json:"sent"`
	Delivered    int64   `json:"delivered"`
	Opened       int64   `json:"opened"`
	Clicked      int64   `json:"clicked"`
	Unsubscribed int64   `json:"unsubscribed"`
	OpenRate     float64 `json:"open_rate"`
	ClickRate    float64 `json:"click_rate"`
}
