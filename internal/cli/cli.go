package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pfrederiksen/visa-bulletin/internal/api"
	"github.com/pfrederiksen/visa-bulletin/internal/archive"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/config"
	"github.com/pfrederiksen/visa-bulletin/internal/crypto"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
	"github.com/pfrederiksen/visa-bulletin/internal/notifier"
	"github.com/pfrederiksen/visa-bulletin/internal/scraper"
	"github.com/pfrederiksen/visa-bulletin/internal/storage"
	"github.com/pfrederiksen/visa-bulletin/internal/watcher"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess       = 0
	ExitError         = 1
	ExitNextAvailable = 2
)

// Version is reported by --version and set from main at build time
var Version = "dev"

// ExitCodeError ends the process with Code. A nil Err exits without a message.
type ExitCodeError struct {
	Code int
	Err  error

	logged bool
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// options holds the flag values shared by every command
type options struct {
	configPath string
	dataDir    string
	format     string
	verbose    bool

	dryRun    bool
	listen    string
	sortOrder string
	visaType  string
	visaArea  string
	dateType  string
	sponsor   string
}

// app is the per-command runtime built from config and flags
type app struct {
	cfg     config.Config
	log     *logger.Logger
	format  OutputFormat
	verbose bool
	out     io.Writer
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "visa-bulletin",
		Short: "Save and mail new U.S. visa bulletins",
		Long: `A CLI tool that watches the U.S. Department of State visa bulletin index.
Every published bulletin that has not been seen before is parsed, saved as JSON
and mailed as a table of cut-off dates. Run it from cron.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          opts.runMonitor,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default "+config.DefaultPath+")")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Data directory for saved bulletins (overrides config)")
	flags.StringVar(&opts.format, "format", "text", "Output format: text or json")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose output and debug logging")

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print digests instead of saving and mailing them")

	cmd.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newLinksCmd(opts),
		newParseCmd(opts),
		newHistoryCmd(opts),
		newServeCmd(opts),
		newEncryptSecretCmd(opts),
	)

	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Save and mail every new bulletin (default command)",
		Args:  cobra.NoArgs,
		RunE:  opts.runMonitor,
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print digests instead of saving and mailing them")
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether next month's bulletin is published (exit code 2 when it is)",
		Args:  cobra.NoArgs,
		RunE:  opts.runCheck,
	}
}

func newLinksCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "List the bulletin links on the index page",
		Args:  cobra.NoArgs,
		RunE:  opts.runLinks,
	}
}

func newParseCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <url>",
		Short: "Parse one bulletin page and print its cut-off dates",
		Args:  cobra.ExactArgs(1),
		RunE:  opts.runParse,
	}
	cmd.Flags().StringVar(&opts.sortOrder, "sort", string(SortByPage), "Sort order: page, category or area")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show how a visa category moved across archived bulletins",
		Args:  cobra.NoArgs,
		RunE:  opts.runHistory,
	}
	cmd.Flags().StringVar(&opts.visaType, "visa-type", "", "Visa category, e.g. F1 or 2nd (required)")
	cmd.Flags().StringVar(&opts.visaArea, "visa-area", "", "Chargeability area, e.g. INDIA")
	cmd.Flags().StringVar(&opts.dateType, "date-type", "", "Date type: final or filing")
	cmd.Flags().StringVar(&opts.sponsor, "sponsorship", "", "Sponsorship: family or employment")
	cmd.MarkFlagRequired("visa-type")
	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve saved bulletins and history over HTTP",
		Args:  cobra.NoArgs,
		RunE:  opts.runServe,
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Listen address (overrides config)")
	return cmd
}

func newEncryptSecretCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt-secret",
		Short: "Encrypt the SMTP password read from stdin for smtp.password_encrypted",
		Long: `Reads the SMTP password from the first line of stdin and prints it encrypted
with the passphrase in ` + config.EnvPrefix + `SECRET_KEY.`,
		Args: cobra.NoArgs,
		RunE: opts.runEncryptSecret,
	}
}

// setup loads and validates the configuration. A configuration error is logged
// and ends the command before any page is fetched.
func (o *options) setup(cmd *cobra.Command, requireSMTP bool) (*app, error) {
	format, err := ParseFormat(o.format)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.configPath)
	if err == nil {
		if o.dataDir != "" {
			cfg.DataDir = o.dataDir
		}
		if o.verbose {
			cfg.Log.Level = string(logger.LevelDebug)
		}
		err = cfg.Validate(requireSMTP)
	}

	log := logger.New(logger.ParseLevel(cfg.Log.Level), cmd.ErrOrStderr(), logFormat(cfg.Log.Format))
	if err != nil {
		log.Error("invalid configuration", nil, err)
		return nil, &ExitCodeError{Code: ExitError, Err: fmt.Errorf("invalid configuration: %w", err), logged: true}
	}

	return &app{
		cfg:     cfg,
		log:     log.With(logger.Fields{"command": cmd.Name()}),
		format:  format,
		verbose: o.verbose,
		out:     cmd.OutOrStdout(),
	}, nil
}

func logFormat(s string) logger.Format {
	if logger.Format(s) == logger.FormatConsole {
		return logger.FormatConsole
	}
	return logger.FormatJSON
}

func (a *app) scraper() *scraper.Scraper {
	return scraper.New(a.cfg.ScraperConfig(), a.log)
}

// openArchive returns nil when no archive is configured
func (a *app) openArchive(ctx context.Context) (*archive.Archive, error) {
	if a.cfg.ArchivePath == "" {
		return nil, nil
	}
	arch, err := archive.Open(ctx, config.ExpandHome(a.cfg.ArchivePath))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return arch, nil
}

func (a *app) write(result Result) error {
	if err := WriteOutput(a.out, result, a.format, a.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// runMonitor is the main command logic
func (o *options) runMonitor(cmd *cobra.Command, _ []string) error {
	a, err := o.setup(cmd, !o.dryRun)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := storage.New(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	var (
		n      notifier.Notifier
		target watcher.Store = store
		wopts  []watcher.Option
	)
	if o.dryRun {
		digestOut := a.out
		if a.format == FormatJSON {
			digestOut = cmd.ErrOrStderr()
		}
		n = notifier.NewDryRunNotifier(digestOut)
		target = storage.NewPreview(store)
	} else {
		smtpCfg, err := a.cfg.NotifierConfig()
		if err != nil {
			a.log.Error("invalid configuration", nil, err)
			return &ExitCodeError{Code: ExitError, Err: err, logged: true}
		}
		smtp, err := notifier.NewSMTPNotifier(smtpCfg, a.log)
		if err != nil {
			return err
		}
		n = smtp

		arch, err := a.openArchive(ctx)
		if err != nil {
			return err
		}
		if arch != nil {
			defer arch.Close()
			wopts = append(wopts, watcher.WithArchive(arch))
		}
	}

	w := watcher.New(a.scraper(), target, n, a.log, wopts...)
	report, err := w.Run(ctx)
	if err != nil {
		return err
	}

	if err := a.write(&RunResult{CheckedAt: time.Now().UTC(), DryRun: o.dryRun, Report: report}); err != nil {
		return err
	}

	if len(report.Failed) > 0 {
		return &ExitCodeError{Code: ExitError, Err: fmt.Errorf("%d bulletin(s) failed", len(report.Failed))}
	}
	return nil
}

func (o *options) runCheck(cmd *cobra.Command, _ []string) error {
	a, err := o.setup(cmd, false)
	if err != nil {
		return err
	}

	w := watcher.New(a.scraper(), nil, nil, a.log)
	availability, links, err := w.CheckNext(cmd.Context())
	if err != nil {
		return err
	}

	if err := a.write(&CheckResult{CheckedAt: time.Now().UTC(), Availability: availability, Links: links}); err != nil {
		return err
	}

	if availability.Available() {
		return &ExitCodeError{Code: ExitNextAvailable}
	}
	return nil
}

func (o *options) runLinks(cmd *cobra.Command, _ []string) error {
	a, err := o.setup(cmd, false)
	if err != nil {
		return err
	}

	s := a.scraper()
	links, err := s.FetchLinks(cmd.Context())
	if err != nil {
		return err
	}
	return a.write(&LinksResult{URL: s.IndexURL(), Links: links})
}

func (o *options) runParse(cmd *cobra.Command, args []string) error {
	order, err := ParseSortOrder(o.sortOrder)
	if err != nil {
		return err
	}
	a, err := o.setup(cmd, false)
	if err != nil {
		return err
	}

	page, err := a.scraper().FetchBulletin(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	sortDates(page.CutOffDates, order)
	return a.write(&ParseResult{Page: page})
}

func (o *options) runHistory(cmd *cobra.Command, _ []string) error {
	a, err := o.setup(cmd, false)
	if err != nil {
		return err
	}

	q := archive.Query{
		VisaType:    o.visaType,
		VisaArea:    o.visaArea,
		DateType:    bulletin.DateType(strings.ToLower(o.dateType)),
		Sponsorship: bulletin.Sponsorship(strings.ToLower(o.sponsor)),
	}
	switch q.DateType {
	case "", bulletin.DateFinal, bulletin.DateFiling:
	default:
		return fmt.Errorf("invalid date type: %s (must be 'final' or 'filing')", o.dateType)
	}

	arch, err := a.openArchive(cmd.Context())
	if err != nil {
		return err
	}
	if arch == nil {
		return errors.New("no history archive configured (set archive_path)")
	}
	defer arch.Close()

	dates, err := arch.History(cmd.Context(), q)
	if err != nil {
		return err
	}
	return a.write(&HistoryResult{Query: q, History: dates})
}

func (o *options) runServe(cmd *cobra.Command, _ []string) error {
	a, err := o.setup(cmd, false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := storage.New(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	var history api.HistoryReader
	arch, err := a.openArchive(ctx)
	if err != nil {
		return err
	}
	if arch != nil {
		defer arch.Close()
		history = arch
	}

	listen := a.cfg.Listen
	if o.listen != "" {
		listen = o.listen
	}

	server := api.NewServer(api.NewHandler(store, history, a.log), a.log)
	return api.Serve(ctx, listen, server, a.log)
}

func (o *options) runEncryptSecret(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	enc, err := crypto.NewEncryptor(cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("%sSECRET_KEY: %w", config.EnvPrefix, err)
	}

	secret, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading secret: %w", err)
	}
	secret = strings.TrimRight(secret, "\r\n")
	if secret == "" {
		return errors.New("no secret on stdin")
	}

	sealed, err := enc.Encrypt(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sealed)
	return nil
}

// Run executes the command tree with args and returns the process exit code
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil && !exitErr.logged {
			fmt.Fprintf(stderr, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitError
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
