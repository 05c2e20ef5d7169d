package description

import (
	_ "embed"
	"encoding/json"

	"custodian-migrator/migrator/errors"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed descriptor.schema.json
var descriptorSchema string

var schema = jsonschema.MustCompileString("descriptor.schema.json", descriptorSchema)

//Validate checks a raw migration document against the descriptor schema.
func Validate(data []byte) error {
	var document interface{}
	if err := json.Unmarshal(data, &document); err != nil {
		return errors.NewApplicationError(errors.ErrInvalidDescription, "Migration is not a valid JSON document: %s", err.Error())
	}
	if err := schema.Validate(document); err != nil {
		e := errors.NewApplicationError(errors.ErrInvalidDescription, "Migration does not match the descriptor schema")
		e.Data = err.Error()
		return e
	}
	return nil
}
