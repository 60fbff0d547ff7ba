package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/mailersend-go/internal/config"
	"github.com/ignite/mailersend-go/internal/mailersend"
	"github.com/ignite/mailersend-go/internal/pkg/logger"
)

var exampleUsage = strings.TrimSpace(`
  mailersend send --to ann@example.com --subject "Hi {{ name }}" --html "<p>Hello</p>" --var name=Ann
  mailersend send --to ann@example.com --template-id abc123 --dry-run
  mailersend bulk-send --file batch.yaml --wait
  mailersend bulk-status 614470d1588b866d0454f3e2
`)

// app carries state shared by the subcommands. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	cfgPath  string
	envFile  string
	logLevel string

	cfg    *config.Config
	log    *logger.Logger
	client *mailersend.Client

	// overridden in tests
	httpClient mailersend.HTTPDoer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mailersend",
		Short: "Send transactional email through MailerSend",
		Long: `mailersend sends single and bulk emails through the MailerSend API
and reports the progress of bulk jobs.

The API token is read from MAILERSEND_API_TOKEN, a .env file or the
config file. Results are printed to stdout as JSON.`,
		Example:       exampleUsage,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newSendCmd(a))
	root.AddCommand(newBulkSendCmd(a))
	root.AddCommand(newBulkStatusCmd(a))
	return root
}

func (a *app) setup(stderr io.Writer) error {
	var envFiles []string
	if a.envFile != "" {
		envFiles = append(envFiles, a.envFile)
	}
	cfg, err := config.LoadFromEnv(a.cfgPath, envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	a.log = logger.New(stderr, logger.ParseLevel(cfg.Logging.Level), !cfg.Logging.DisableRedaction)
	a.log.Debug("configuration loaded",
		"base_url", cfg.MailerSend.BaseURL,
		"token", logger.RedactToken(cfg.MailerSend.APIToken),
		"from_email", cfg.MailerSend.DefaultFrom.Email,
	)

	opts := []mailersend.Option{mailersend.WithLogger(a.log)}
	if a.httpClient != nil {
		opts = append(opts, mailersend.WithHTTPClient(a.httpClient))
	}
	a.client = mailersend.NewClient(cfg.MailerSend, opts...)
	return nil
}

// requireToken fails commands that reach the API without credentials.
func (a *app) requireToken() error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("%w (set MAILERSEND_API_TOKEN or mailersend.api_token)", err)
	}
	return nil
}

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err and, for provider validation failures, one line
// per rejected field.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var apiErr *mailersend.Error
	if !errors.As(err, &apiErr) || len(apiErr.FieldErrors) == 0 {
		return
	}
	fields := make([]string, 0, len(apiErr.FieldErrors))
	for f := range apiErr.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, strings.Join(apiErr.FieldErrors[f], "; "))
	}
}
