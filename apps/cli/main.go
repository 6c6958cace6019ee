// Command repofetch prints every file of a GitHub repository as a flat JSON
// list, or as a single text bundle, without cloning it.
//
//	repofetch [flags] <repository-url>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/atotto/clipboard"
	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/pflag"

	"github.com/tilsley/repofetch/pkg/githost"
	"github.com/tilsley/repofetch/pkg/logging"
	"github.com/tilsley/repofetch/pkg/repofiles"
)

type options struct {
	token       string
	apiURL      string
	host        string
	maxInFlight int
	retries     int
	timeout     time.Duration
	excludes    []string
	bundle      bool
	copy        bool
	quiet       bool
	url         string
}

// deps are the side effects run needs, replaced in tests.
type deps struct {
	stdout  io.Writer
	stderr  io.Writer
	newHost func(githost.Options) (repofiles.RepoHost, error)
	copy    func(string) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d := deps{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		newHost: newGitHubHost,
		copy:    clipboard.WriteAll,
	}
	if err := run(ctx, os.Args[1:], d); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "repofetch:", err)
		}
		os.Exit(exitCode(err))
	}
}

func newGitHubHost(opts githost.Options) (repofiles.RepoHost, error) {
	gh, err := githost.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return githost.New(gh), nil
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := pflag.NewFlagSet("repofetch", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&o.token, "token", "t", os.Getenv("GITHUB_TOKEN"), "GitHub token (default $GITHUB_TOKEN)")
	fs.StringVar(&o.apiURL, "api-url", os.Getenv("GITHUB_API_URL"), "GitHub API base URL (default $GITHUB_API_URL or api.github.com)")
	fs.StringVar(&o.host, "host", repofiles.DefaultHost, "Hosting domain accepted in repository URLs")
	fs.IntVarP(&o.maxInFlight, "max-in-flight", "j", repofiles.DefaultMaxInFlight, "Maximum concurrent API requests")
	fs.IntVar(&o.retries, "retries", githost.DefaultMaxRetries, "Retries for transient API failures")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "Per-request HTTP timeout")
	fs.StringSliceVarP(&o.excludes, "exclude", "x", nil, "Additional file names to skip (repeatable or comma separated)")
	fs.BoolVarP(&o.bundle, "bundle", "b", false, "Print a single text bundle instead of JSON")
	fs.BoolVarP(&o.copy, "copy", "c", false, "Also copy the output to the clipboard")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "Hide the progress bar")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: repofetch [flags] <repository-url>")
		fmt.Fprintln(stderr, "\nFetch every file of a GitHub repository as a flat list.")
		fmt.Fprintln(stderr, "\nExample: repofetch --bundle https://github.com/acme/widgets")
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, usageError(err.Error())
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, usageError("expected exactly one repository URL")
	}
	if o.maxInFlight < 1 {
		return nil, usageError("--max-in-flight must be at least 1")
	}
	if o.retries < 0 {
		return nil, usageError("--retries must not be negative")
	}
	o.url = fs.Arg(0)
	return o, nil
}

func run(ctx context.Context, args []string, d deps) error {
	o, err := parseFlags(args, d.stderr)
	if err != nil {
		return err
	}
	log := logging.NewWithWriter(d.stderr, "repofetch-cli")

	host, err := d.newHost(githost.Options{
		Token:      o.token,
		BaseURL:    o.apiURL,
		MaxRetries: o.retries,
		Timeout:    o.timeout,
		Log:        log,
	})
	if err != nil {
		return err
	}

	var walkOpts []repofiles.WalkerOption
	if !o.quiet {
		bar := newProgress(d.stderr)
		defer bar.Finish()
		walkOpts = append(walkOpts, repofiles.WithFileObserver(func(repofiles.FileRecord) { bar.Increment() }))
	}

	exclusions := repofiles.NewExclusionSet(o.excludes...)
	svc := repofiles.NewService(host, repofiles.Config{
		Host:        o.host,
		MaxInFlight: o.maxInFlight,
		Exclusions:  &exclusions,
	}, nil, nil, log, walkOpts...)

	files, err := svc.FetchFiles(ctx, o.url)
	if err != nil {
		return err
	}

	out, err := render(files, o.bundle)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(d.stdout, out); err != nil {
		return err
	}
	if o.copy {
		if err := d.copy(out); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		log.Info("copied to clipboard", "bytes", len(out))
	}
	return nil
}

func render(files []repofiles.FileRecord, bundle bool) (string, error) {
	if bundle {
		return repofiles.Bundle(files), nil
	}
	raw, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw) + "\n", nil
}

// newProgress starts an open-ended counter of fetched files on w.
func newProgress(w io.Writer) *pb.ProgressBar {
	bar := pb.New(0)
	bar.SetTemplateString(`{{ "fetched" }} {{ counters . }} files {{ etime . }}`)
	bar.SetWriter(w)
	return bar.Start()
}

type usageError string

func (e usageError) Error() string { return string(e) }

// exitCode is 2 for usage errors, 3 for unparsable URLs and 1 otherwise.
func exitCode(err error) int {
	var (
		usage   usageError
		invalid repofiles.InvalidURLError
	)
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.As(err, &usage):
		return 2
	case errors.As(err, &invalid):
		return 3
	default:
		return 1
	}
}
