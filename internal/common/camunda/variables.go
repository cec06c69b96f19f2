// internal/common/camunda/variables.go
package camunda

import (
	"encoding/json"
	"fmt"

	"tour-estimate-workers/internal/common/errors"
	"tour-estimate-workers/internal/common/validation"
)

// DecodeVariables validates the job variables against schema and decodes them
// into dst. Both failures are reported as invalid input.
func DecodeVariables(variables []byte, schema *validation.Validator, dst interface{}) error {
	if schema != nil {
		if err := schema.ValidateBytes(variables).Err(); err != nil {
			return errors.NewInvalidInputError(err.Error())
		}
	}
	if err := json.Unmarshal(variables, dst); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}
	return nil
}
