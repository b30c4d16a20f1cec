// Command nanoget fetches URLs over HTTP/1.1 and prints their bodies.
//
// Usage:
//
//	nanoget [-i] [-env-file path] URL...
//
// Every URL is fetched concurrently, bodies are printed in argument order.
// Configuration is read from NANOGET_* environment variables, optionally loaded from a .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"nano-get/application/http/actor/client"
	"nano-get/application/http/semantic"
	"nano-get/application/util/locator"
	"nano-get/session/tls"
	"nano-get/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("nanoget", flag.ContinueOnError)
	flags.SetOutput(stderr)
	include := flags.Bool("i", false, "print the status line and headers before the body")
	envFile := flags.String("env-file", ".env", "file to load environment variables from, if it exists")

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: nanoget [-i] [-env-file path] URL...")
		return 2
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "nanoget: loading %s: %s\n", *envFile, err)
		return 1
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		fmt.Fprintln(stderr, "nanoget:", err)
		return 1
	}

	c, err := newClient(cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "nanoget:", err)
		return 1
	}

	responses, err := fetchAll(ctx, c, cfg, flags.Args())
	if err != nil {
		fmt.Fprintln(stderr, "nanoget:", err)
		return 1
	}

	for _, response := range responses {
		if *include {
			writeHead(stdout, response)
		}
		_, _ = stdout.Write(response.Body)
	}

	return 0
}

func newClient(cfg config, logOut io.Writer) (*client.Client, error) {
	lookuper, err := cfg.lookuper()
	if err != nil {
		return nil, err
	}

	plain := &tcp.Dialer{Lookuper: lookuper, Timeout: cfg.DialTimeout}
	dialers := client.Dialers{
		locator.SchemeHTTP:  plain,
		locator.SchemeHTTPS: tls.NewDialer(plain, tls.Options{InsecureSkipVerify: cfg.InsecureSkipVerify}),
	}

	opts := client.DefaultOptions
	opts.Send.UserAgent = cfg.UserAgent
	opts.Receive.Parse.MaxBodySize = cfg.MaxBodySize
	opts.Timeout = client.TimeoutOptions{
		Dial:  cfg.DialTimeout,
		Read:  cfg.ReadTimeout,
		Write: cfg.WriteTimeout,
	}

	return client.New(dialers, cfg.newLogger(logOut), clock.New(), opts), nil
}

// fetchAll runs one call per URL concurrently. The first failure cancels pending dials.
func fetchAll(ctx context.Context, c *client.Client, cfg config, urls []string) ([]*semantic.Response, error) {
	responses := make([]*semantic.Response, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	for i, rawURL := range urls {
		g.Go(func() error {
			request, err := semantic.DefaultGetRequest(rawURL)
			if err != nil {
				return err
			}
			if cfg.UserAgent != "" {
				request.AddHeader("User-Agent", cfg.UserAgent)
			}

			response, err := c.Execute(ctx, request)
			if err != nil {
				return errors.Wrapf(err, "fetching %s", rawURL)
			}

			responses[i] = response
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

func writeHead(w io.Writer, response *semantic.Response) {
	fmt.Fprintf(w, "%s %s\n", response.Version, response.Status)
	for _, field := range response.Headers.Fields() {
		fmt.Fprintf(w, "%s: %s\n", field[0], field[1])
	}
	fmt.Fprintln(w)
}
