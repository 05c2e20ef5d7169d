package errors_test

import (
	"encoding/json"

	. "custodian-migrator/migrator/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	pkgerrors "github.com/pkg/errors"
)

var _ = Describe("Errors", func() {
	It("Finds the kind through wrapped errors", func() {
		err := pkgerrors.Wrap(NewDiscoveryError(ErrWrongOrderingPrefix, "bad prefix '%s'", "x"), "listing")

		Expect(IsKind(err, KindDiscovery)).To(BeTrue())
		Expect(IsKind(err, KindConfiguration)).To(BeFalse())
		Expect(IsFatal(err)).To(BeFalse())

		migratorError, ok := As(err)
		Expect(ok).To(BeTrue())
		Expect(migratorError.Msg).To(Equal("bad prefix 'x'"))
	})

	It("Marks fatal errors", func() {
		err := NewFatalError(ErrRecordUploadFailed, map[string]interface{}{"id": 1}, "upload failed")
		Expect(IsFatal(pkgerrors.WithStack(err))).To(BeTrue())
		Expect(err.Kind).To(Equal(KindApplication))
	})

	It("Keeps the cause of transport errors", func() {
		err := NewTransportError(pkgerrors.New("connection refused"), "POST %s", "/migrations")
		Expect(err.Kind).To(Equal(KindTransport))
		Expect(err.Data).To(Equal("connection refused"))
	})

	Describe("Remote error body", func() {
		It("Decodes a typed error", func() {
			var remoteError RemoteError
			err := json.Unmarshal([]byte(`{"Code":"migration_already_applied","Msg":"done"}`), &remoteError)

			Expect(err).To(BeNil())
			Expect(remoteError.Code).To(Equal(RemoteMigrationAlreadyApplied))
			Expect(remoteError.Msg).To(Equal("done"))
		})

		It("Decodes a bare string error", func() {
			var remoteError RemoteError
			err := json.Unmarshal([]byte(`"pq: connection refused"`), &remoteError)

			Expect(err).To(BeNil())
			Expect(remoteError.Code).To(BeEmpty())
			Expect(remoteError.Msg).To(Equal("pq: connection refused"))
		})
	})
})
