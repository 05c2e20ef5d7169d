//Package applier submits migration descriptors to custodian and classifies the answers.
//
//Schema migrations are posted as a whole to the migrations endpoint. Records migrations
//(createRecords) are uploaded record by record to the data endpoint of the target object;
//any answer other than a success or a duplicate stops the whole run.
package applier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"custodian-migrator/logger"
	"custodian-migrator/migrator/client"
	"custodian-migrator/migrator/description"
	"custodian-migrator/migrator/errors"
)

type Outcome int

const (
	Applied Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

type RecordOutcome int

const (
	Uploaded RecordOutcome = iota
	Duplicate
	Rejected
)

func (o RecordOutcome) String() string {
	switch o {
	case Uploaded:
		return "uploaded"
	case Duplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}

//Client is the part of the custodian API the applier needs.
type Client interface {
	ApplyMigration(ctx context.Context, migrationDescription *description.MigrationDescription) (*client.Response, error)
	CreateRecord(ctx context.Context, objectName string, record map[string]interface{}) (*client.Response, error)
}

type RecordResult struct {
	Record   map[string]interface{}
	Outcome  RecordOutcome
	Response *client.Response
	Err      error
}

//String renders the record as compact JSON for status lines.
func (r *RecordResult) String() string {
	encodedData, err := json.Marshal(r.Record)
	if err != nil {
		return fmt.Sprintf("%v", r.Record)
	}
	return string(encodedData)
}

type Result struct {
	Migration *description.MigrationDescription
	Outcome   Outcome
	//Answer to the schema migration request, nil for records migrations
	Response *client.Response
	Records  []*RecordResult
	//Reason of a Failed outcome
	Err error
}

type Applier struct {
	client Client
}

func New(c Client) *Applier {
	return &Applier{client: c}
}

//Apply submits the migration and returns its outcome. The returned error is set only for
//failures which must stop the run (a rejected record); other failures are reported by a
//Failed result carrying the reason in Err.
func (a *Applier) Apply(ctx context.Context, migrationDescription *description.MigrationDescription) (*Result, error) {
	result := &Result{Migration: migrationDescription, Outcome: Failed}
	if len(migrationDescription.Operations) == 0 {
		result.Err = errors.NewApplicationError(errors.ErrInvalidDescription, "Migration '%s' has no operations", migrationDescription.Id)
		return result, nil
	}

	if migrationDescription.IsRecordsMigration() {
		return a.applyRecords(ctx, migrationDescription, result)
	}
	return a.applySchema(ctx, migrationDescription, result), nil
}

func (a *Applier) applySchema(ctx context.Context, migrationDescription *description.MigrationDescription, result *Result) *Result {
	response, err := a.client.ApplyMigration(ctx, migrationDescription)
	if err != nil {
		result.Err = err
		return result
	}
	result.Response = response

	switch {
	case response.IsOK():
		result.Outcome = Applied
	case response.IsFail() && response.ErrorCode() == errors.RemoteMigrationAlreadyApplied:
		result.Outcome = Skipped
	default:
		e := errors.NewApplicationError(errors.ErrMigrationFailed, "Migration '%s' was not applied, server answered %d", migrationDescription.Id, response.StatusCode)
		if response.Error != nil {
			e.Data = response.Error
		} else {
			e.Data = response.String()
		}
		result.Err = e
	}
	return result
}

func (a *Applier) applyRecords(ctx context.Context, migrationDescription *description.MigrationDescription, result *Result) (*Result, error) {
	objectName := migrationDescription.ApplyTo
	if objectName == "" {
		result.Err = errors.NewApplicationError(errors.ErrInvalidDescription, "Records migration '%s' has no applyTo", migrationDescription.Id)
		return result, nil
	}

	anySkipped := false
	for _, record := range migrationDescription.Records() {
		recordResult := &RecordResult{Record: record}
		result.Records = append(result.Records, recordResult)

		response, err := a.client.CreateRecord(ctx, objectName, record)
		recordResult.Response = response
		switch {
		case err != nil:
			recordResult.Outcome = Rejected
			recordResult.Err = err
			result.Err = errors.NewFatalError(errors.ErrRecordUploadFailed, err.Error(), "Record upload to '%s' failed", objectName)
			return result, result.Err
		case response.StatusCode == http.StatusOK:
			recordResult.Outcome = Uploaded
		case response.StatusCode == http.StatusBadRequest && response.ErrorCode() == errors.RemoteDuplicatedValue:
			recordResult.Outcome = Duplicate
			anySkipped = true
		default:
			recordResult.Outcome = Rejected
			result.Err = errors.NewFatalError(errors.ErrRecordUploadFailed, response.String(), "Record upload to '%s' was rejected with status %d", objectName, response.StatusCode)
			recordResult.Err = result.Err
			return result, result.Err
		}
		logger.Debug("Record %s of '%s': %s", recordResult, objectName, recordResult.Outcome)
	}

	//a single duplicate marks the whole batch as already applied
	if anySkipped {
		result.Outcome = Skipped
	} else {
		result.Outcome = Applied
	}
	return result, nil
}
