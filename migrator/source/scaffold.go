package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"custodian-migrator/logger"
	"custodian-migrator/migrator/description"
	"custodian-migrator/migrator/errors"
	"custodian-migrator/utils"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

//Scaffold writes the next migration file of dir and returns its path. The new migration
//depends on the last one of the directory.
func Scaffold(dir, name, applyTo string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", errors.NewApplicationError(errors.ErrInvalidDescription, "Wrong migration name '%s'", name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", pkgerrors.Wrapf(err, "can't create migrations directory '%s'", dir)
	}

	files, err := List(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", err
	}

	var next int64 = 1
	dependsOn := make([]string, 0)
	if len(files) > 0 {
		last := files[len(files)-1]
		next = last.Order + 1
		if previous, err := Load(last); err == nil {
			dependsOn = append(dependsOn, previous.Id)
		} else {
			logger.Warn("Can't read the last migration '%s', dependsOn is left empty: %s", last.Name, err.Error())
		}
	}

	migrationDescription := &description.MigrationDescription{
		Id:         uuid.NewString(),
		ApplyTo:    applyTo,
		DependsOn:  dependsOn,
		Operations: []description.MigrationOperationDescription{templateOperation(name, applyTo)},
	}
	data, err := json.MarshalIndent(migrationDescription, "", "    ")
	if err != nil {
		return "", err
	}
	if err := description.Validate(data); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s.json", next, name))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return "", errors.NewApplicationError(errors.ErrMigrationFileExists, "Migration file '%s' already exists", path)
		}
		return "", err
	}
	defer utils.CloseFile(f)

	if _, err := f.Write(append(data, '\n')); err != nil {
		return "", pkgerrors.Wrapf(err, "can't write migration '%s'", path)
	}
	return path, nil
}

func templateOperation(name, applyTo string) description.MigrationOperationDescription {
	if applyTo == "" {
		return description.MigrationOperationDescription{
			Type: description.CreateObjectOperation,
			MetaDescription: &description.MetaDescription{
				Name: name,
				Key:  "id",
				Fields: []description.Field{
					{
						Name:     "id",
						Type:     description.FieldTypeNumber,
						Optional: true,
						Def:      map[string]interface{}{"func": "nextval"},
					},
				},
				Cas: false,
			},
		}
	}
	return description.MigrationOperationDescription{
		Type: description.AddFieldOperation,
		Field: &description.MigrationFieldDescription{
			Field: description.Field{Name: "new_field", Type: description.FieldTypeString, Optional: true},
		},
	}
}
