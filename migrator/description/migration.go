package description

import (
	"encoding/json"
	"io"
	"io/ioutil"

	"custodian-migrator/migrator/errors"

	"github.com/getlantern/deepcopy"
)

const (
	AddFieldOperation    = "addField"
	RemoveFieldOperation = "removeField"
	UpdateFieldOperation = "updateField"

	CreateObjectOperation = "createObject"
	DeleteObjectOperation = "deleteObject"
	RenameObjectOperation = "renameObject"

	AddActionOperation    = "addAction"
	UpdateActionOperation = "updateAction"
	RemoveActionOperation = "removeAction"

	CreateRecordsOperation = "createRecords"
)

type MigrationDescription struct {
	Id         string                          `json:"id"`
	ApplyTo    string                          `json:"applyTo"`
	DependsOn  []string                        `json:"dependsOn"`
	Operations []MigrationOperationDescription `json:"operations"`

	raw []byte
}

//Marshal returns the document the description was read from, so properties which are not
//modelled here reach the server untouched.
func (md *MigrationDescription) Marshal() ([]byte, error) {
	if md.raw != nil {
		return md.raw, nil
	}
	return json.Marshal(md)
}

func (md *MigrationDescription) Clone() *MigrationDescription {
	migrationDescription := new(MigrationDescription)
	deepcopy.Copy(migrationDescription, md)
	if md.raw != nil {
		migrationDescription.raw = append([]byte(nil), md.raw...)
	}
	return migrationDescription
}

//Type of the first operation, which decides how the migration is submitted.
func (md *MigrationDescription) Type() string {
	if len(md.Operations) == 0 {
		return ""
	}
	return md.Operations[0].Type
}

func (md *MigrationDescription) IsRecordsMigration() bool {
	return md.Type() == CreateRecordsOperation
}

//Returns meta`s name which this migration is intended for
func (md *MigrationDescription) MetaName() (string, error) {
	if md.ApplyTo != "" {
		return md.ApplyTo, nil
	}
	if md.Type() != CreateObjectOperation || md.Operations[0].MetaDescription == nil {
		return "", errors.NewApplicationError(errors.ErrInvalidDescription, "Migration has neither ApplyTo defined nor createObject operation")
	}
	return md.Operations[0].MetaDescription.Name, nil
}

//Records of the leading createRecords operation.
func (md *MigrationDescription) Records() []map[string]interface{} {
	if !md.IsRecordsMigration() {
		return nil
	}
	return md.Operations[0].Records
}

type MigrationOperationDescription struct {
	Type            string                     `json:"type"`
	Field           *MigrationFieldDescription `json:"field,omitempty"`
	MetaDescription *MetaDescription           `json:"object,omitempty"`
	Action          map[string]interface{}     `json:"action,omitempty"`
	Records         []map[string]interface{}   `json:"records,omitempty"`
}

type MigrationFieldDescription struct {
	Field
	PreviousName string `json:"previousName,omitempty"`
}

//MigrationDescriptionFromJson decodes and validates a migration document.
func MigrationDescriptionFromJson(inputReader io.Reader) (*MigrationDescription, error) {
	data, err := ioutil.ReadAll(inputReader)
	if err != nil {
		return nil, errors.NewApplicationError(errors.ErrMigrationRead, "Failed to read migration: %s", err.Error())
	}
	if err := Validate(data); err != nil {
		return nil, err
	}

	md := &MigrationDescription{}
	if err := json.Unmarshal(data, md); err != nil {
		return nil, errors.NewApplicationError(errors.ErrInvalidDescription, "Failed to decode migration: %s", err.Error())
	}
	md.raw = data
	return md, nil
}
