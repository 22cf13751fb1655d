package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"

	"github.com/albroco/go-http-digest/pkg/digest"

	"github.com/jpfielding/gowirelog/wirelog"
	"gopkg.in/yaml.v3"
)

// Target describes one request to authenticate, loadable from a YAML file.
type Target struct {
	URL      string `yaml:"url"`
	Method   string `yaml:"method"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Args struct {
	Target
	Config  string
	Wirelog string
}

// Parse reads flags and, if given, the YAML config. Flags win over the file.
func (a *Args) Parse() error {
	flag.StringVar(&a.Username, "username", "", "the digest username")
	flag.StringVar(&a.Password, "password", "", "the digest password")
	flag.StringVar(&a.URL, "url", "", "the url to request")
	flag.StringVar(&a.Method, "method", "", "the http method (default GET)")
	flag.StringVar(&a.Config, "config", "", "yaml file describing the target")
	flag.StringVar(&a.Wirelog, "wirelog", "", "the log file to see raw http")
	flag.Parse()

	if a.Config != "" {
		raw, err := os.ReadFile(a.Config)
		if err != nil {
			return err
		}
		var t Target
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("parsing %s: %w", a.Config, err)
		}
		if a.URL == "" {
			a.URL = t.URL
		}
		if a.Method == "" {
			a.Method = t.Method
		}
		if a.Username == "" {
			a.Username = t.Username
		}
		if a.Password == "" {
			a.Password = t.Password
		}
	}
	if a.Method == "" {
		a.Method = http.MethodGet
	}
	return nil
}

func main() {
	args := &Args{}
	if err := args.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	transport := digest.DefaultHTTPTransport()
	// hook in wirelogging if requested
	if args.Wirelog != "" {
		if _, err := wirelog.LogToFile(transport, args.Wirelog, true, false); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	client := &http.Client{
		Transport: digest.NewTransport(args.Username, args.Password, transport),
	}
	client.Jar, _ = cookiejar.New(nil)

	req, err := http.NewRequest(args.Method, args.URL, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
