// Package main provides the textfrag command: resolve the text fragment
// directives of one or more URLs to the passages they designate.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/entrhq/textfrag/pkg/browser"
	"github.com/entrhq/textfrag/pkg/config"
	"github.com/entrhq/textfrag/pkg/logging"
	"github.com/entrhq/textfrag/pkg/output"
	"github.com/entrhq/textfrag/pkg/pagetext"
	"github.com/entrhq/textfrag/pkg/scraper"
	"github.com/entrhq/textfrag/pkg/textfragment"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Wait        string
	HTML        htmlSources
	Stdin       bool
	Format      string
	Color       string
	ParseOnly   bool
	Concurrency int
	Timeout     time.Duration
	Copy        bool
	Verbose     bool
	ShowVersion bool
	URLs        []string

	// set records which flags were given explicitly
	set map[string]bool
}

func main() {
	cli, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if cli.ShowVersion {
		fmt.Printf("textfrag v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	code := run(ctx, cli, os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// parseFlags parses command line flags
func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cli := &CLIConfig{set: map[string]bool{}}

	fs.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	fs.StringVar(&cli.Wait, "wait", "", "Render wait policy: none, delay:<duration> or stable[:<max>] (overrides config and site rules)")
	fs.Var(&cli.HTML, "html", "Resolve directives against saved HTML instead of a browser: <file> for every URL, or <url>=<file> (repeatable)")
	fs.BoolVar(&cli.Stdin, "stdin", false, "Read the page text from standard input instead of a browser")
	fs.StringVar(&cli.Format, "format", "", "Output format: text, json or yaml")
	fs.StringVar(&cli.Color, "color", "", "Colorize text output: auto, always or never")
	fs.BoolVar(&cli.ParseOnly, "parse-only", false, "Print the parsed directives without resolving them")
	fs.IntVar(&cli.Concurrency, "concurrency", 0, "Number of URLs scraped at once")
	fs.DurationVar(&cli.Timeout, "timeout", 0, "Timeout per URL, including rendering")
	fs.BoolVar(&cli.Copy, "copy", false, "Copy the extracted text to the clipboard")
	fs.BoolVar(&cli.Verbose, "v", false, "Log to stderr, including debug output")
	fs.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "textfrag - extract the text a #:~:text= link points at\n\n")
		fmt.Fprintf(out, "Usage: textfrag [options] <url> [url...]\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  textfrag 'https://oleb.net/2020/text-fragments/#:~:text=Text%%20fragments%%20are%%20a%%20way,(released%%20in%%20February%%202020).'\n")
		fmt.Fprintf(out, "  textfrag -wait stable -format json '<url>'\n")
		fmt.Fprintf(out, "  textfrag -html saved.html '<url>'\n")
		fmt.Fprintf(out, "  textfrag -html https://a.example/=a.html -html https://b.example/=b.html '<url a>' '<url b>'\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		cli.set[f.Name] = true
	})
	cli.URLs = fs.Args()
	return cli, nil
}

// htmlSources collects -html values. A bare file serves every URL; url=file
// serves one page.
type htmlSources struct {
	path  string
	files map[string]string
}

func (h *htmlSources) String() string {
	if h == nil {
		return ""
	}
	return h.path
}

func (h *htmlSources) Set(value string) error {
	if i := strings.LastIndex(value, "="); i > 0 {
		if u, err := url.Parse(value[:i]); err == nil && u.Scheme != "" && u.Host != "" {
			if value[i+1:] == "" {
				return fmt.Errorf("missing file for %s", value[:i])
			}
			if h.files == nil {
				h.files = make(map[string]string)
			}
			h.files[value[:i]] = value[i+1:]
			return nil
		}
	}

	if h.path != "" {
		return fmt.Errorf("only one fallback HTML file is allowed")
	}
	h.path = value
	return nil
}

func (h *htmlSources) set() bool {
	return h.path != "" || len(h.files) > 0
}

func (h *htmlSources) provider() *pagetext.FileProvider {
	p := &pagetext.FileProvider{Path: h.path}
	for u, file := range h.files {
		p.Add(u, file)
	}
	return p
}

// run executes the command and returns the process exit code
func run(ctx context.Context, cli *CLIConfig, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(stderr, "textfrag: %v\n", err)
		return 2
	}
	if len(cli.URLs) == 0 {
		fmt.Fprintf(stderr, "textfrag: at least one URL is required\n")
		return 2
	}
	if cli.HTML.set() && cli.Stdin {
		fmt.Fprintf(stderr, "textfrag: -html and -stdin are mutually exclusive\n")
		return 2
	}

	logger := newLogger(cli, stderr)
	defer logger.Close()

	writer := output.NewWriter(stdout, cfg.Output.Format, cfg.Output.Color)

	if cli.ParseOnly {
		return parseOnly(cli.URLs, writer, stderr)
	}

	provider, cleanup, err := newProvider(cli, cfg, stdin, logger)
	if err != nil {
		fmt.Fprintf(stderr, "textfrag: %v\n", err)
		return 1
	}
	defer cleanup()

	policy := cfg.PolicyFor
	if cli.set["wait"] {
		p, err := pagetext.ParseWaitPolicy(cli.Wait)
		if err != nil {
			fmt.Fprintf(stderr, "textfrag: -wait: %v\n", err)
			return 2
		}
		policy = scraper.Fixed(p)
	}

	s := scraper.New(withTimeout(provider, cfg.Timeout), scraper.WithLogger(logger.With("scraper")))
	batches, err := s.ScrapeAll(ctx, cli.URLs, policy, cfg.Concurrency)
	if err != nil {
		logger.Warnf("run interrupted: %v", err)
	}

	if err := writer.Write(batches); err != nil {
		fmt.Fprintf(stderr, "textfrag: writing output: %v\n", err)
		return 1
	}

	if cli.Copy {
		if err := clipboard.WriteAll(output.Texts(batches)); err != nil {
			fmt.Fprintf(stderr, "textfrag: copy to clipboard: %v\n", err)
		}
	}

	for _, b := range batches {
		if b.Err != nil {
			return 1
		}
	}
	if err != nil {
		return 1
	}
	return 0
}

// loadConfig loads the configuration file, if any, and applies flag
// overrides
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg := config.Default()
	if cli.ConfigFile != "" {
		loaded, err := config.Load(cli.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cli.set["format"] {
		cfg.Output.Format = config.OutputFormat(cli.Format)
	}
	if cli.set["color"] {
		cfg.Output.Color = cli.Color
	}
	if cli.set["concurrency"] {
		cfg.Concurrency = cli.Concurrency
	}
	if cli.set["timeout"] {
		cfg.Timeout = cli.Timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cli *CLIConfig, stderr io.Writer) *logging.Logger {
	if cli.Verbose {
		return logging.NewWriterLogger("textfrag", stderr, true)
	}

	// NewLogger falls back to stderr on error and reports it there
	logger, _ := logging.NewLogger("textfrag")
	return logger
}

// newProvider picks the page text source: stdin, a saved HTML file, or a
// headless browser
func newProvider(cli *CLIConfig, cfg *config.Config, stdin io.Reader, logger *logging.Logger) (pagetext.Provider, func(), error) {
	switch {
	case cli.Stdin:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("reading stdin: %w", err)
		}
		return &pagetext.StaticProvider{Text: string(data)}, func() {}, nil

	case cli.HTML.set():
		return cli.HTML.provider(), func() {}, nil

	default:
		manager := browser.NewManager(cfg.ManagerOptions()...)
		provider := browser.NewProvider(manager, cfg.BrowserOptions(), logger.With("browser"))
		cleanup := func() {
			if err := manager.Shutdown(); err != nil {
				logger.Warnf("browser shutdown: %v", err)
			}
		}
		return provider, cleanup, nil
	}
}

// withTimeout bounds each provider call by d
func withTimeout(p pagetext.Provider, d time.Duration) pagetext.Provider {
	if d <= 0 {
		return p
	}
	return pagetext.ProviderFunc(func(ctx context.Context, url string, wait pagetext.WaitPolicy) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return p.PageText(ctx, url, wait)
	})
}

func parseOnly(urls []string, writer *output.Writer, stderr io.Writer) int {
	code := 0
	for _, u := range urls {
		directives, err := textfragment.FromURL(u)
		if err != nil {
			fmt.Fprintf(stderr, "textfrag: %s: %v\n", u, err)
			code = 1
			continue
		}
		if err := writer.WriteDirectives(u, directives); err != nil {
			fmt.Fprintf(stderr, "textfrag: writing output: %v\n", err)
			return 1
		}
	}
	return code
}
