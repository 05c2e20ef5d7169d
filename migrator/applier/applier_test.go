package applier_test

import (
	"context"
	"net/http"
	"strings"

	"custodian-migrator/migrator/applier"
	"custodian-migrator/migrator/client"
	"custodian-migrator/migrator/description"
	"custodian-migrator/migrator/errors"

	pkgerrors "github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type answer struct {
	status int
	body   string
	err    error
}

//scriptedClient answers requests with the queued answers, in order.
type scriptedClient struct {
	answers    []answer
	migrations []string
	records    []map[string]interface{}
	objects    []string
}

func (c *scriptedClient) next() (*client.Response, error) {
	a := c.answers[0]
	c.answers = c.answers[1:]
	if a.err != nil {
		return nil, a.err
	}
	return client.NewResponse(a.status, []byte(a.body)), nil
}

func (c *scriptedClient) ApplyMigration(ctx context.Context, migrationDescription *description.MigrationDescription) (*client.Response, error) {
	c.migrations = append(c.migrations, migrationDescription.Id)
	return c.next()
}

func (c *scriptedClient) CreateRecord(ctx context.Context, objectName string, record map[string]interface{}) (*client.Response, error) {
	c.objects = append(c.objects, objectName)
	c.records = append(c.records, record)
	return c.next()
}

const (
	okBody        = `{"status":"OK"}`
	appliedBody   = `{"status":"FAIL","error":{"Code":"migration_already_applied"}}`
	duplicateBody = `{"status":"FAIL","error":{"Code":"duplicated_value_error"}}`
)

var _ = Describe("Migration applier", func() {
	ctx := context.Background()
	var stub *scriptedClient
	var migrationApplier *applier.Applier

	load := func(document string) *description.MigrationDescription {
		migrationDescription, err := description.MigrationDescriptionFromJson(strings.NewReader(document))
		Expect(err).To(BeNil())
		return migrationDescription
	}

	createObject := `{
		"id": "a1",
		"applyTo": "",
		"dependsOn": [],
		"operations": [{
			"type": "createObject",
			"object": {"name": "a", "key": "id", "cas": false, "fields": [
				{"name": "id", "type": "number", "optional": true, "default": {"func": "nextval"}}
			]}
		}]
	}`
	createRecords := `{
		"id": "r1",
		"applyTo": "a",
		"operations": [{"type": "createRecords", "records": [{"id": 1}, {"id": 2}]}]
	}`

	BeforeEach(func() {
		stub = &scriptedClient{}
		migrationApplier = applier.New(stub)
	})

	Describe("Schema migrations", func() {
		It("Is applied when the server answers OK", func() {
			stub.answers = []answer{{status: http.StatusOK, body: okBody}}

			result, err := migrationApplier.Apply(ctx, load(createObject))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Applied))
			Expect(result.Err).To(BeNil())
			Expect(stub.migrations).To(Equal([]string{"a1"}))
		})

		It("Is skipped when it is already applied", func() {
			stub.answers = []answer{{status: http.StatusBadRequest, body: appliedBody}}

			result, err := migrationApplier.Apply(ctx, load(createObject))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Skipped))
		})

		It("Fails on any other error code", func() {
			stub.answers = []answer{{status: http.StatusBadRequest, body: `{"status":"FAIL","error":{"Code":"object_not_found"}}`}}

			result, err := migrationApplier.Apply(ctx, load(createObject))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Failed))
			migratorError, ok := errors.As(result.Err)
			Expect(ok).To(BeTrue())
			Expect(migratorError.Code).To(Equal(errors.ErrMigrationFailed))
			Expect(migratorError.Fatal).To(BeFalse())
		})

		It("Fails on an unreadable answer", func() {
			stub.answers = []answer{{status: http.StatusBadGateway, body: "Bad Gateway"}}

			result, err := migrationApplier.Apply(ctx, load(createObject))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Failed))
			Expect(result.Response.String()).To(Equal("Bad Gateway"))
		})

		It("Fails without stopping the run on transport errors", func() {
			stub.answers = []answer{{err: errors.NewTransportError(pkgerrors.New("connection refused"), "POST failed")}}

			result, err := migrationApplier.Apply(ctx, load(createObject))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Failed))
			Expect(errors.IsKind(result.Err, errors.KindTransport)).To(BeTrue())
		})

		It("Fails a migration without operations without sending it", func() {
			result, err := migrationApplier.Apply(ctx, &description.MigrationDescription{Id: "empty"})

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Failed))
			Expect(stub.migrations).To(BeEmpty())
		})
	})

	Describe("Records migrations", func() {
		It("Is applied when every record is uploaded", func() {
			stub.answers = []answer{{status: http.StatusOK, body: okBody}, {status: http.StatusOK, body: okBody}}

			result, err := migrationApplier.Apply(ctx, load(createRecords))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Applied))
			Expect(stub.objects).To(Equal([]string{"a", "a"}))
			Expect(result.Records).To(HaveLen(2))
			Expect(result.Records[0].Outcome).To(Equal(applier.Uploaded))
			Expect(result.Records[1].String()).To(Equal(`{"id":2}`))
			Expect(stub.migrations).To(BeEmpty())
		})

		It("Is skipped when a single record is a duplicate", func() {
			stub.answers = []answer{{status: http.StatusOK, body: okBody}, {status: http.StatusBadRequest, body: duplicateBody}}

			result, err := migrationApplier.Apply(ctx, load(createRecords))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Skipped))
			Expect(result.Records[0].Outcome).To(Equal(applier.Uploaded))
			Expect(result.Records[1].Outcome).To(Equal(applier.Duplicate))
		})

		It("Is skipped when the duplicate comes first", func() {
			stub.answers = []answer{{status: http.StatusBadRequest, body: duplicateBody}, {status: http.StatusOK, body: okBody}}

			result, err := migrationApplier.Apply(ctx, load(createRecords))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Skipped))
		})

		It("Stops the run on a rejected record", func() {
			stub.answers = []answer{{status: http.StatusInternalServerError, body: `{"status":"FAIL","error":"boom"}`}}

			result, err := migrationApplier.Apply(ctx, load(createRecords))

			Expect(errors.IsFatal(err)).To(BeTrue())
			Expect(result.Outcome).To(Equal(applier.Failed))
			Expect(result.Records).To(HaveLen(1))
			Expect(result.Records[0].Outcome).To(Equal(applier.Rejected))
			Expect(stub.records).To(HaveLen(1))
		})

		It("Stops the run on a bad request which is not a duplicate", func() {
			stub.answers = []answer{{status: http.StatusOK, body: okBody}, {status: http.StatusBadRequest, body: `{"status":"FAIL","error":{"Code":"wrong_type"}}`}}

			result, err := migrationApplier.Apply(ctx, load(createRecords))

			Expect(errors.IsFatal(err)).To(BeTrue())
			Expect(result.Outcome).To(Equal(applier.Failed))
			migratorError, _ := errors.As(err)
			Expect(migratorError.Code).To(Equal(errors.ErrRecordUploadFailed))
		})

		It("Stops the run on transport errors", func() {
			stub.answers = []answer{{err: errors.NewTransportError(pkgerrors.New("timeout"), "POST failed")}}

			_, err := migrationApplier.Apply(ctx, load(createRecords))

			Expect(errors.IsFatal(err)).To(BeTrue())
		})

		It("Fails without a target object and sends nothing", func() {
			result, err := migrationApplier.Apply(ctx, load(`{"id":"r2","applyTo":"","operations":[{"type":"createRecords","records":[{"id":1}]}]}`))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Failed))
			Expect(stub.records).To(BeEmpty())
		})

		It("Is applied when there are no records", func() {
			result, err := migrationApplier.Apply(ctx, load(`{"id":"r3","applyTo":"a","operations":[{"type":"createRecords","records":[]}]}`))

			Expect(err).To(BeNil())
			Expect(result.Outcome).To(Equal(applier.Applied))
		})
	})

	It("Names outcomes", func() {
		Expect(applier.Applied.String()).To(Equal("applied"))
		Expect(applier.Skipped.String()).To(Equal("skipped"))
		Expect(applier.Failed.String()).To(Equal("failed"))
	})
})
