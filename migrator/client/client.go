package client

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"custodian-migrator/logger"
	"custodian-migrator/migrator/auth"
	"custodian-migrator/migrator/description"
	"custodian-migrator/migrator/errors"
	"custodian-migrator/utils"

	rqlParser "github.com/Q-CIS-DEV/go-rql-parser"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseUrl    string
	Timeout    time.Duration
	RetryMax   int
	RetryPause time.Duration
	RecordRate float64
}

func ConfigFrom(appConfig *utils.AppConfig) Config {
	return Config{
		BaseUrl:    appConfig.CustodianUrl,
		Timeout:    appConfig.RequestTimeout,
		RetryMax:   appConfig.TransportRetryMax,
		RetryPause: appConfig.TransportRetryPause,
		RecordRate: appConfig.RecordUploadRate,
	}
}

//Client of the custodian API. Every request is signed with a service token.
type Client struct {
	baseUrl string
	http    *retryablehttp.Client
	signer  *auth.Signer
	limiter *rate.Limiter
}

func New(config Config, signer *auth.Signer) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient.Timeout = config.Timeout
	httpClient.RetryMax = config.RetryMax
	httpClient.RetryWaitMin = config.RetryPause
	httpClient.RetryWaitMax = config.RetryPause
	httpClient.CheckRetry = retryOnTransportError
	httpClient.Backoff = fixedPause
	httpClient.Logger = logger.Leveled{}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RecordRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RecordRate), 1)
	}

	return &Client{
		baseUrl: strings.TrimRight(config.BaseUrl, "/"),
		http:    httpClient,
		signer:  signer,
		limiter: limiter,
	}
}

//Only failures to get a response are retried: any answer of the server is final and
//goes to the caller for classification.
func retryOnTransportError(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

func fixedPause(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	return min
}

//ApplyMigration submits a migration description.
func (c *Client) ApplyMigration(ctx context.Context, migrationDescription *description.MigrationDescription) (*Response, error) {
	body, err := migrationDescription.Marshal()
	if err != nil {
		return nil, errors.NewApplicationError(errors.ErrInvalidDescription, "Can't encode migration '%s': %s", migrationDescription.Id, err.Error())
	}
	return c.do(ctx, http.MethodPost, "/migrations", body)
}

//CreateRecord creates a single record of the object.
func (c *Client) CreateRecord(ctx context.Context, objectName string, record map[string]interface{}) (*Response, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, errors.NewApplicationError(errors.ErrInvalidDescription, "Can't encode record of '%s': %s", objectName, err.Error())
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewTransportError(err, "Record upload to '%s' was not started", objectName)
	}
	return c.do(ctx, http.MethodPost, "/data/"+url.PathEscape(objectName), body)
}

//BulkUpload replaces the records of the object with the payload.
func (c *Client) BulkUpload(ctx context.Context, objectName string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewApplicationError(errors.ErrInvalidDescription, "Can't encode fixture of '%s': %s", objectName, err.Error())
	}
	return c.do(ctx, http.MethodPut, "/data/bulk/"+url.PathEscape(objectName), body)
}

//ListMigrations returns the migrations applied by the server, filtered by an RQL expression.
func (c *Client) ListMigrations(ctx context.Context, filter string) (*Response, error) {
	path := "/migrations"
	if filter != "" {
		if err := checkRql(filter); err != nil {
			return nil, err
		}
		path += "?" + url.Values{"q": []string{filter}}.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

//checkRql parses the filter, the parser panics on some malformed expressions.
func checkRql(filter string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewApplicationError(errors.ErrWrongRQL, "Wrong RQL filter '%s': %v", filter, r)
		}
	}()
	if _, parseErr := rqlParser.NewParser().Parse(filter); parseErr != nil {
		return errors.NewApplicationError(errors.ErrWrongRQL, "Wrong RQL filter '%s': %s", filter, parseErr.Error())
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}
	target := c.baseUrl + path
	request, err := retryablehttp.NewRequestWithContext(ctx, method, target, rawBody)
	if err != nil {
		return nil, errors.NewTransportError(err, "Can't build request %s %s", method, target)
	}
	request.Header.Add("Content-Type", "application/json")
	request.Header.Add("Authorization", c.signer.Header())

	started := time.Now()
	response, err := c.http.Do(request)
	if err != nil {
		return nil, errors.NewTransportError(err, "%s %s failed", method, target)
	}
	defer response.Body.Close()

	data, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return nil, errors.NewTransportError(err, "Can't read response of %s %s", method, target)
	}
	logger.Debug("%s %s -> %d in %s", method, target, response.StatusCode, time.Since(started))
	return NewResponse(response.StatusCode, data), nil
}
