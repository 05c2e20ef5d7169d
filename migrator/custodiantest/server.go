//Package custodiantest runs an in-memory custodian API for tests. It keeps the history of
//applied migrations and the created records, answers with the same JSON envelopes as the
//real server and checks service tokens.
package custodiantest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"custodian-migrator/migrator/auth"
	"custodian-migrator/migrator/description"
	"custodian-migrator/migrator/errors"

	"github.com/julienschmidt/httprouter"
)

const Root = "/custodian"

//Responder overrides the answer of a route: HTTP status and body. A body of []byte or
//string type is written as is, anything else is encoded to JSON.
type MigrationResponder func(migrationDescription map[string]interface{}) (int, interface{})
type RecordResponder func(objectName string, record map[string]interface{}) (int, interface{})

type Request struct {
	Method        string
	Path          string
	Query         string
	Body          []byte
	Authorization string
}

type Server struct {
	*httptest.Server

	MigrationResponder MigrationResponder
	RecordResponder    RecordResponder

	secret     string
	mu         sync.Mutex
	requests   []Request
	migrations []*description.MigrationDescription
	records    map[string][]map[string]interface{}
	fixtures   map[string]interface{}
}

func NewServer(secret string) *Server {
	s := &Server{
		secret:   secret,
		records:  make(map[string][]map[string]interface{}),
		fixtures: make(map[string]interface{}),
	}

	router := httprouter.New()
	router.POST(Root+"/migrations", s.applyMigration)
	router.GET(Root+"/migrations", s.listMigrations)
	router.POST(Root+"/data/:name", s.createRecord)
	router.PUT(Root+"/data/bulk/:name", s.bulkUpload)

	s.Server = httptest.NewServer(s.authenticate(router))
	return s
}

//BaseUrl is the value of CUSTODIAN_URL pointing to this server.
func (s *Server) BaseUrl() string {
	return s.Server.URL + Root
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := ioutil.ReadAll(req.Body)
		req.Body = ioutil.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        req.Method,
			Path:          req.URL.Path,
			Query:         req.URL.RawQuery,
			Body:          body,
			Authorization: req.Header.Get("Authorization"),
		})
		s.mu.Unlock()

		if !s.authorized(req.Header.Get("Authorization")) {
			pushError(w, http.StatusUnauthorized, "401", "Authorization failed")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (s *Server) authorized(header string) bool {
	if !strings.HasPrefix(header, auth.HeaderPrefix) {
		return false
	}
	return auth.CheckServiceToken(strings.TrimPrefix(header, auth.HeaderPrefix), s.secret)
}

func (s *Server) applyMigration(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	body, _ := ioutil.ReadAll(req.Body)
	if s.MigrationResponder != nil {
		var migrationData map[string]interface{}
		if err := json.Unmarshal(body, &migrationData); err != nil {
			pushError(w, http.StatusBadRequest, errors.ErrInvalidDescription, err.Error())
			return
		}
		status, responseBody := s.MigrationResponder(migrationData)
		writeRaw(w, status, responseBody)
		return
	}

	migrationDescription, err := description.MigrationDescriptionFromJson(bytes.NewReader(body))
	if err != nil {
		pushError(w, http.StatusBadRequest, errors.ErrInvalidDescription, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, applied := range s.migrations {
		if applied.Id == migrationDescription.Id {
			pushError(w, http.StatusBadRequest, errors.RemoteMigrationAlreadyApplied, fmt.Sprintf("Migration with ID '%s' has already been applied", applied.Id))
			return
		}
	}
	s.migrations = append(s.migrations, migrationDescription.Clone())
	pushObj(w, migrationDescription)
}

func (s *Server) listMigrations(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]interface{}, 0, len(s.migrations))
	for _, migrationDescription := range s.migrations {
		result = append(result, migrationDescription)
	}
	pushList(w, result, len(result))
}

func (s *Server) createRecord(w http.ResponseWriter, req *http.Request, p httprouter.Params) {
	objectName := p.ByName("name")
	var record map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&record); err != nil {
		pushError(w, http.StatusBadRequest, "bad_request", "bad JSON")
		return
	}
	if s.RecordResponder != nil {
		status, responseBody := s.RecordResponder(objectName, record)
		writeRaw(w, status, responseBody)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := record["id"]; ok {
		for _, existing := range s.records[objectName] {
			if existing["id"] == id {
				pushError(w, http.StatusBadRequest, errors.RemoteDuplicatedValue, fmt.Sprintf("Record with id '%v' already exists", id))
				return
			}
		}
	}
	s.records[objectName] = append(s.records[objectName], record)
	pushObj(w, record)
}

func (s *Server) bulkUpload(w http.ResponseWriter, req *http.Request, p httprouter.Params) {
	var payload interface{}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		pushError(w, http.StatusBadRequest, "bad_request", "bad JSON")
		return
	}
	s.mu.Lock()
	s.fixtures[p.ByName("name")] = payload
	s.mu.Unlock()
	pushObj(w, payload)
}

//Requests returns every request received, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

//Applied returns the ids of the applied migrations, in order.
func (s *Server) Applied() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.migrations))
	for _, migrationDescription := range s.migrations {
		ids = append(ids, migrationDescription.Id)
	}
	return ids
}

func (s *Server) Records(objectName string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]interface{}(nil), s.records[objectName]...)
}

func (s *Server) Fixture(objectName string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.fixtures[objectName]
	return payload, ok
}

func pushObj(w http.ResponseWriter, object interface{}) {
	responseData := map[string]interface{}{"status": "OK"}
	if object != nil {
		responseData["data"] = object
	}
	writeJson(w, http.StatusOK, responseData)
}

func pushList(w http.ResponseWriter, objects []interface{}, total int) {
	writeJson(w, http.StatusOK, map[string]interface{}{
		"status":      "OK",
		"data":        objects,
		"total_count": total,
	})
}

func pushError(w http.ResponseWriter, status int, code string, msg string) {
	writeJson(w, status, map[string]interface{}{
		"status": "FAIL",
		"error":  map[string]interface{}{"Code": code, "Msg": msg},
	})
}

func writeJson(w http.ResponseWriter, status int, data interface{}) {
	encodedData, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(encodedData)
}

func writeRaw(w http.ResponseWriter, status int, body interface{}) {
	switch b := body.(type) {
	case []byte:
		w.WriteHeader(status)
		w.Write(b)
	case string:
		w.WriteHeader(status)
		w.Write([]byte(b))
	default:
		writeJson(w, status, body)
	}
}

//Helpers building the bodies answered by custodian.

func OK(data interface{}) map[string]interface{} {
	return map[string]interface{}{"status": "OK", "data": data}
}

func Fail(code string) map[string]interface{} {
	return map[string]interface{}{"status": "FAIL", "error": map[string]interface{}{"Code": code}}
}
