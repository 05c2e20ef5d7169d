package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"custodian-migrator/logger"
	"custodian-migrator/migrator"
	"custodian-migrator/migrator/applier"
	"custodian-migrator/migrator/auth"
	"custodian-migrator/migrator/client"
	"custodian-migrator/migrator/errors"
	"custodian-migrator/migrator/fixtures"
	"custodian-migrator/migrator/metrics"
	"custodian-migrator/migrator/source"
	"custodian-migrator/utils"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

const (
	exitOK       = 0
	exitFailed   = 1
	exitConfig   = 2
	exitWrongArg = 127
)

type OptsDesc struct {
	prmsCnt int
	handler func(p []string) error
}

var appConfig *utils.AppConfig
var stdout io.Writer = os.Stdout
var runId = uuid.NewString()

var commands = []string{"migrate", "loaddata", "list", "new", "token"}

func init() {
	appConfig = utils.GetConfig()
	logger.SetOut(os.Stderr)
	if err := logger.SetLevel(appConfig.LogLevel); err != nil {
		log.Printf("Wrong log level '%s', keeping 'info'.\n", appConfig.LogLevel)
	}

	if len(appConfig.SentryDsn) > 0 {
		if err := sentry.Init(sentry.ClientOptions{Dsn: appConfig.SentryDsn}); err != nil {
			log.Printf("Sentry is not initialized: %s\n", err.Error())
		}
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("run_id", runId)
		})
	}
}

//Main function applies custodian migrations. Usage:
// migrator <glob|dir|prefix> [-v]       - apply migrations, same as "migrate"
// migrator migrate <glob|dir|prefix> [-v]
// migrator loaddata <glob|dir> [-v]     - bulk upload fixtures
// migrator list [-q <rql>]              - list applied migrations
// migrator new <dir> <name> [-a <obj>]  - write the next migration file of dir
// migrator token                        - print the service Authorization header
//Options:
// -v - echo raw answers of custodian.
// -q - RQL filter of the applied migrations.
// -a - object the new migration applies to, a createObject migration is written without it.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	command := "migrate"
	if len(args) > 0 && utils.Contains(commands, args[0]) {
		command = args[0]
		args = args[1:]
	}

	var verbose bool
	var filter, applyTo string
	var opts = map[string]OptsDesc{
		"-v": {0, func(p []string) error {
			verbose = true
			return nil
		}},
		"-q": {1, func(p []string) error {
			filter = p[0]
			return nil
		}},
		"-a": {1, func(p []string) error {
			applyTo = p[0]
			return nil
		}},
	}

	positional := make([]string, 0)
	for len(args) > 0 {
		if v, e := opts[args[0]]; e && len(args)-1 >= v.prmsCnt {
			if err := v.handler(args[1 : v.prmsCnt+1]); err != nil {
				log.Println(err)
				return exitWrongArg
			}
			args = args[1+v.prmsCnt:]
		} else if strings.HasPrefix(args[0], "-") {
			log.Printf("Wrong argument '%s'\n", args[0])
			return exitWrongArg
		} else {
			positional = append(positional, args[0])
			args = args[1:]
		}
	}

	if command == "new" {
		return scaffold(positional, applyTo)
	}

	signer, err := auth.NewSigner(appConfig.ServiceDomain, appConfig.ServiceAuthSecret)
	if err != nil {
		logger.Error(err.Error())
		return exitConfig
	}
	if command == "token" {
		fmt.Fprintln(stdout, signer.Header())
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	apiClient := client.New(client.ConfigFrom(appConfig), signer)
	recorder := metrics.NewRecorder()
	defer writeMetrics(recorder)

	switch command {
	case "list":
		return list(ctx, apiClient, filter)
	case "loaddata":
		if len(positional) != 1 {
			log.Println("Fixtures path not found, set it as first argument: $> migrator loaddata /path/to/fixtures/*.json")
			return exitWrongArg
		}
		report, err := fixtures.NewLoader(apiClient, stdout, verbose, recorder).Load(ctx, positional[0])
		if err != nil {
			return exitCode(err)
		}
		return report.ExitCode()
	default:
		if len(positional) != 1 {
			log.Println("Migration path not found, set it as first argument: $> migrator /path/to/migrations/")
			return exitWrongArg
		}
		runner := migrator.NewRunner(applier.New(apiClient), stdout, verbose, recorder)
		report, err := runner.Run(ctx, positional[0])
		if err != nil {
			return exitCode(err)
		}
		return report.ExitCode()
	}
}

func scaffold(positional []string, applyTo string) int {
	if len(positional) != 2 {
		log.Println("Usage: $> migrator new /path/to/migrations/ name [-a object]")
		return exitWrongArg
	}
	path, err := source.Scaffold(positional[0], positional[1], applyTo)
	if err != nil {
		return exitCode(err)
	}
	fmt.Fprintln(stdout, path)
	return exitOK
}

func list(ctx context.Context, apiClient *client.Client, filter string) int {
	response, err := apiClient.ListMigrations(ctx, filter)
	if err != nil {
		return exitCode(err)
	}
	if !response.IsOK() {
		fmt.Fprintln(stdout, response.String())
		return exitFailed
	}

	var migrations []map[string]interface{}
	if err := json.Unmarshal(response.Data, &migrations); err != nil {
		fmt.Fprintln(stdout, response.String())
		return exitOK
	}
	for _, migration := range migrations {
		fmt.Fprintf(stdout, "%v\t%v\t%v\n", migration["id"], migration["applyTo"], migration["dependsOn"])
	}
	return exitOK
}

//exitCode reports the error and maps it to the exit status of the process.
func exitCode(err error) int {
	logger.Error(err.Error())
	switch {
	case errors.IsKind(err, errors.KindConfiguration), errors.IsKind(err, errors.KindDiscovery):
		return exitConfig
	case errors.IsFatal(err):
		if len(appConfig.SentryDsn) > 0 {
			sentry.CaptureException(err)
			sentry.Flush(2 * time.Second)
		}
		return exitFailed
	default:
		return exitFailed
	}
}

func writeMetrics(recorder *metrics.Recorder) {
	if len(appConfig.MetricsFile) == 0 {
		return
	}
	if err := recorder.WriteTextfile(appConfig.MetricsFile); err != nil {
		logger.Warn("Can't write metrics to '%s': %s", appConfig.MetricsFile, err.Error())
	}
}
