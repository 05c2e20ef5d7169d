//Package fixtures bulk uploads JSON fixtures to custodian objects. The object is named by
//the fixture file: "01.10_auth_user.json" replaces the records of "auth_user".
package fixtures

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"custodian-migrator/logger"
	"custodian-migrator/migrator/client"
	"custodian-migrator/migrator/errors"
	"custodian-migrator/migrator/metrics"

	"github.com/fatih/structs"
)

//ObjectName derives the object of a fixture file from the second dot separated part of its
//name without the leading ordering token.
func ObjectName(path string) (string, error) {
	parts := strings.Split(filepath.Base(path), ".")
	if len(parts) < 2 {
		return "", errors.NewApplicationError(errors.ErrFixtureNameNotFound, "Fixture '%s' has no object name", path)
	}
	tokens := strings.Split(parts[1], "_")
	name := strings.Join(tokens[1:], "_")
	if name == "" {
		return "", errors.NewApplicationError(errors.ErrFixtureNameNotFound, "Fixture '%s' has no object name", path)
	}
	return name, nil
}

type Uploader interface {
	BulkUpload(ctx context.Context, objectName string, payload interface{}) (*client.Response, error)
}

type Entry struct {
	Path     string
	Object   string
	Uploaded bool
	Response *client.Response
	Err      error
}

type Report struct {
	Pattern string
	Entries []Entry
}

func (r *Report) Failed() int {
	failed := 0
	for _, entry := range r.Entries {
		if !entry.Uploaded {
			failed++
		}
	}
	return failed
}

func (r *Report) ExitCode() int {
	if r.Failed() > 0 {
		return 1
	}
	return 0
}

type summary struct {
	Pattern  string `structs:"pattern"`
	Total    int    `structs:"total"`
	Failed   int    `structs:"failed"`
	Duration string `structs:"duration"`
}

type Loader struct {
	client   Uploader
	out      io.Writer
	verbose  bool
	recorder *metrics.Recorder
}

func NewLoader(uploader Uploader, out io.Writer, verbose bool, recorder *metrics.Recorder) *Loader {
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	return &Loader{client: uploader, out: out, verbose: verbose, recorder: recorder}
}

//Load uploads every fixture matching the pattern in lexicographic order. A fixture which
//is not uploaded is reported and the loader goes on with the next one.
func (l *Loader) Load(ctx context.Context, pattern string) (*Report, error) {
	glob := pattern
	if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		glob = filepath.Join(pattern, "*.json")
	}
	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, errors.NewDiscoveryError(errors.ErrBadPattern, "Bad fixtures pattern '%s': %s", glob, err.Error())
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		logger.Warn("No fixtures found for '%s'", glob)
	}

	report := &Report{Pattern: pattern}
	started := time.Now()
	for _, path := range paths {
		entry := l.upload(ctx, path)
		report.Entries = append(report.Entries, entry)
		l.print(entry)
	}

	duration := time.Since(started)
	l.recorder.ObserveRun(duration)
	logger.WithFields(structs.Map(summary{
		Pattern:  pattern,
		Total:    len(report.Entries),
		Failed:   report.Failed(),
		Duration: duration.String(),
	})).Info("Fixtures loading finished")
	return report, nil
}

func (l *Loader) upload(ctx context.Context, path string) Entry {
	entry := Entry{Path: path}
	objectName, err := ObjectName(path)
	if err != nil {
		entry.Object = filepath.Base(path)
		entry.Err = err
		return entry
	}
	entry.Object = objectName

	data, err := ioutil.ReadFile(path)
	if err != nil {
		entry.Err = errors.NewApplicationError(errors.ErrMigrationRead, "Can't read fixture '%s': %s", path, err.Error())
		return entry
	}
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		entry.Err = errors.NewApplicationError(errors.ErrInvalidDescription, "Fixture '%s' is not a valid JSON document: %s", path, err.Error())
		return entry
	}

	response, err := l.client.BulkUpload(ctx, objectName, payload)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Response = response
	entry.Uploaded = response.StatusCode == http.StatusOK
	return entry
}

func (l *Loader) print(entry Entry) {
	if entry.Uploaded {
		l.recorder.Fixture("uploaded")
		fmt.Fprintf(l.out, "Fixture: %s uploaded.\n", entry.Object)
		return
	}

	l.recorder.Fixture("failed")
	fmt.Fprintf(l.out, "Fixture %s not uploaded.\n", entry.Object)
	if entry.Err != nil {
		logger.Error("Fixture '%s' failed: %s", entry.Path, entry.Err.Error())
	}
	if l.verbose && entry.Response != nil {
		fmt.Fprintln(l.out, entry.Response.StatusCode)
		var indented bytes.Buffer
		if err := json.Indent(&indented, entry.Response.Body, "", "    "); err == nil {
			fmt.Fprintln(l.out, indented.String())
		} else {
			fmt.Fprintln(l.out, entry.Response.String())
		}
	}
}
