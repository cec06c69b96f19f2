// pkg/registry/schema.go
package registry

import (
	"fmt"
	"time"

	apperrors "tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/common/validation"
)

// Categories group activities by the record their job acts on.
const (
	CategoryEstimate = "estimate"
	CategorySession  = "session"
)

const (
	StatusPlanned    = "planned"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusVerified   = "verified"
)

var (
	categories = map[string]bool{CategoryEstimate: true, CategorySession: true}
	statuses   = map[string]bool{StatusPlanned: true, StatusInProgress: true, StatusCompleted: true, StatusVerified: true}
)

type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity declares one Zeebe job type: the variables it reads, the
// variables it completes with and the BPMN error codes it may throw.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	Workflows            []string               `json:"workflows"`
	Tags                 []string               `json:"tags"`
}

// TimeoutDuration parses Timeout. An empty timeout is zero.
func (a Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
	}
	return d, nil
}

// RequiredInputs lists the job variables the input schema marks required.
func (a Activity) RequiredInputs() []string {
	raw, _ := a.InputSchema["required"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CheckInput validates job variables against the input schema. Activities
// without one accept anything.
func (a Activity) CheckInput(vars map[string]interface{}) error {
	return a.check("input", a.InputSchema, vars)
}

// CheckOutput validates completion variables against the output schema.
func (a Activity) CheckOutput(vars map[string]interface{}) error {
	return a.check("output", a.OutputSchema, vars)
}

func (a Activity) check(kind string, schema, vars map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}
	v, err := validation.NewValidator(schema)
	if err != nil {
		return fmt.Errorf("activity %s: %s schema: %w", a.ID, kind, err)
	}
	if err := v.Validate(vars).Err(); err != nil {
		return fmt.Errorf("activity %s %s: %w", a.ID, kind, err)
	}
	return nil
}

// validate checks the fields Validate does not: category, status, timeout,
// error codes and that both schemas compile.
func (a Activity) validate() error {
	if !categories[a.Category] {
		return fmt.Errorf("activity %s: unknown category %q", a.ID, a.Category)
	}
	if a.ImplementationStatus != "" && !statuses[a.ImplementationStatus] {
		return fmt.Errorf("activity %s: unknown implementation status %q", a.ID, a.ImplementationStatus)
	}
	if d, err := a.TimeoutDuration(); err != nil {
		return err
	} else if d < 0 {
		return fmt.Errorf("activity %s: negative timeout", a.ID)
	}
	if a.Retries < 0 {
		return fmt.Errorf("activity %s: negative retries", a.ID)
	}
	for _, code := range a.ErrorCodes {
		if !apperrors.IsKnownErrorCode(apperrors.ErrorCode(code)) {
			return fmt.Errorf("activity %s: unknown error code %s", a.ID, code)
		}
	}
	if err := compiles(a.InputSchema); err != nil {
		return fmt.Errorf("activity %s: input schema: %w", a.ID, err)
	}
	if err := compiles(a.OutputSchema); err != nil {
		return fmt.Errorf("activity %s: output schema: %w", a.ID, err)
	}
	return nil
}

func compiles(schema map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}
	_, err := validation.NewValidator(schema)
	return err
}
