package description_test

import (
	"encoding/json"
	"strings"

	"custodian-migrator/migrator/description"
	"custodian-migrator/migrator/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const createObjectMigration = `{
	"id": "c8a1f2e0",
	"applyTo": "",
	"dependsOn": [],
	"operations": [
		{
			"type": "createObject",
			"object": {
				"name": "person",
				"key": "id",
				"fields": [
					{"name": "id", "type": "number", "optional": true, "default": {"func": "nextval"}},
					{"name": "name", "type": "string", "optional": false}
				],
				"cas": false,
				"views": {"default": "person #{id}"}
			}
		}
	]
}`

var _ = Describe("Migration description", func() {
	It("Decodes a createObject migration", func() {
		md, err := description.MigrationDescriptionFromJson(strings.NewReader(createObjectMigration))
		Expect(err).To(BeNil())

		Expect(md.Id).To(Equal("c8a1f2e0"))
		Expect(md.Type()).To(Equal(description.CreateObjectOperation))
		Expect(md.IsRecordsMigration()).To(BeFalse())

		metaName, err := md.MetaName()
		Expect(err).To(BeNil())
		Expect(metaName).To(Equal("person"))

		idField := md.Operations[0].MetaDescription.FindField("id")
		Expect(idField).NotTo(BeNil())
		Expect(idField.Type).To(Equal(description.FieldTypeNumber))
		Expect(idField.Default().Func).To(Equal("nextval"))
		Expect(md.Operations[0].MetaDescription.FindField("name").Default()).To(BeNil())
	})

	It("Submits the document it was read from", func() {
		md, _ := description.MigrationDescriptionFromJson(strings.NewReader(createObjectMigration))

		data, err := md.Marshal()
		Expect(err).To(BeNil())
		Expect(string(data)).To(ContainSubstring(`"views"`))
	})

	It("Marshals constructed descriptions", func() {
		md := &description.MigrationDescription{
			Id:      "update",
			ApplyTo: "person",
			Operations: []description.MigrationOperationDescription{
				{
					Type: description.UpdateFieldOperation,
					Field: &description.MigrationFieldDescription{
						Field:        description.Field{Name: "new_name", Type: description.FieldTypeString},
						PreviousName: "name",
					},
				},
			},
		}
		data, err := md.Marshal()
		Expect(err).To(BeNil())

		var decoded map[string]interface{}
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		field := decoded["operations"].([]interface{})[0].(map[string]interface{})["field"].(map[string]interface{})
		Expect(field["previousName"]).To(Equal("name"))
		Expect(field["name"]).To(Equal("new_name"))
	})

	It("Clones descriptions", func() {
		md, _ := description.MigrationDescriptionFromJson(strings.NewReader(createObjectMigration))
		clone := md.Clone()
		clone.Operations[0].MetaDescription.Name = "changed"

		Expect(md.Operations[0].MetaDescription.Name).To(Equal("person"))
		data, _ := clone.Marshal()
		Expect(string(data)).To(ContainSubstring(`"person"`))
	})

	It("Returns records of a createRecords migration", func() {
		md, err := description.MigrationDescriptionFromJson(strings.NewReader(`{
			"id": "fill-person", "applyTo": "person", "dependsOn": ["c8a1f2e0"],
			"operations": [{"type": "createRecords", "records": [{"id": 1, "name": "a"}, {"id": 2, "name": "b"}]}]
		}`))
		Expect(err).To(BeNil())

		Expect(md.IsRecordsMigration()).To(BeTrue())
		Expect(md.Records()).To(HaveLen(2))
		Expect(md.Records()[1]["name"]).To(Equal("b"))
	})

	It("Requires applyTo or createObject to know the object", func() {
		md := &description.MigrationDescription{
			Id:         "delete",
			Operations: []description.MigrationOperationDescription{{Type: description.DeleteObjectOperation}},
		}
		_, err := md.MetaName()
		Expect(errors.IsKind(err, errors.KindApplication)).To(BeTrue())
	})

	Describe("Validation", func() {
		invalid := []struct{ name, document string }{
			{"not json", `{"id":`},
			{"missing id", `{"operations": [{"type": "deleteObject"}]}`},
			{"no operations", `{"id": "x", "operations": []}`},
			{"unknown operation", `{"id": "x", "operations": [{"type": "dropDatabase"}]}`},
			{"createObject without object", `{"id": "x", "operations": [{"type": "createObject"}]}`},
			{"updateField without field", `{"id": "x", "applyTo": "a", "operations": [{"type": "updateField"}]}`},
			{"records are not objects", `{"id": "x", "applyTo": "a", "operations": [{"type": "createRecords", "records": [1, 2]}]}`},
		}

		for _, testCase := range invalid {
			document := testCase.document
			It("Rejects a document with "+testCase.name, func() {
				_, err := description.MigrationDescriptionFromJson(strings.NewReader(document))

				migratorError, ok := errors.As(err)
				Expect(ok).To(BeTrue())
				Expect(migratorError.Code).To(Equal(errors.ErrInvalidDescription))
			})
		}

		It("Accepts a deleteObject migration", func() {
			Expect(description.Validate([]byte(`{"id": "x", "applyTo": "person", "dependsOn": null, "operations": [{"type": "deleteObject"}]}`))).To(Succeed())
		})
	})
})
