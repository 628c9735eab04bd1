// pkg/registry/schema.go
package registry

// FlowRegistry is the ordered list of borrower-facing flow steps.
type FlowRegistry struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Steps       []Step `json:"steps"`
}

type Step struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Category    string `json:"category"`
	TaskType    string `json:"taskType"`
	// Requires lists session fields that must be set before the step calls the backend.
	Requires   []string `json:"requires,omitempty"`
	ErrorCodes []string `json:"errorCodes,omitempty"`
	Timeout    string   `json:"timeout,omitempty"`
	Retries    int      `json:"retries"`
	Tags       []string `json:"tags,omitempty"`
}
