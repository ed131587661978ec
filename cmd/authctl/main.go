// authctl exercises the auth client end to end from a terminal:
// email-code login, anonymous sign-in, current-user lookup, and sign-out.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/pagefold/auth-client/internal/api"
	"github.com/pagefold/auth-client/internal/auth"
	"github.com/pagefold/auth-client/internal/config"
)

// tokenHolder is a minimal in-memory TokenSource. It seeds from AUTHC_TOKEN
// so whoami/logout work across runs; durable storage is the caller's problem,
// not the client's.
type tokenHolder struct {
	mu    sync.Mutex
	token string
}

func (h *tokenHolder) Token() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token, h.token != ""
}

func (h *tokenHolder) Set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func main() {
	args := os.Args[1:]

	var (
		configFlag string
		debugFlag  bool
		command    string
		cmdArgs    []string
	)

	i := 0
parseLoop:
	for i < len(args) {
		switch args[i] {
		case "-h", "--help":
			printHelp()
			return
		case "-c", "--config":
			if i+1 < len(args) {
				configFlag = args[i+1]
				i += 2
			} else {
				fmt.Fprintln(os.Stderr, "Error: --config requires a value")
				os.Exit(1)
			}
		case "-d", "--debug":
			debugFlag = true
			i++
		default:
			command = args[i]
			cmdArgs = args[i+1:]
			break parseLoop
		}
	}

	if command == "" {
		printHelp()
		os.Exit(1)
	}

	cfg, err := config.Load(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel, debugFlag)

	tokens := &tokenHolder{}
	if t := os.Getenv("AUTHC_TOKEN"); t != "" {
		tokens.Set(t)
	}

	clientOpts := []api.ClientOption{
		api.WithTimeout(cfg.Timeout),
		api.WithTokenSource(tokens),
	}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, api.WithUserAgent(cfg.UserAgent))
	}
	client := api.NewClient(cfg.BaseURL, clientOpts...)

	session := auth.NewSessionChannel(client)
	defer session.Close()

	ctx := context.Background()

	switch command {
	case "login":
		runLogin(ctx, session, tokens, cmdArgs)
	case "anonymous":
		runAnonymous(ctx, session, tokens)
	case "whoami":
		runWhoami(ctx, session)
	case "logout":
		session.SignOut(ctx)
		fmt.Println("Signed out.")
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		printHelp()
		os.Exit(1)
	}
}

func runLogin(ctx context.Context, session *auth.SessionChannel, tokens *tokenHolder, args []string) {
	var (
		dashboard bool
		email     string
	)
	for _, arg := range args {
		switch arg {
		case "--dashboard":
			dashboard = true
		default:
			email = arg
		}
	}
	if email == "" {
		fmt.Fprintln(os.Stderr, "Error: login requires an email address")
		os.Exit(1)
	}

	if err := session.RequestSignInCode(ctx, email, dashboard); err != nil {
		fmt.Fprintf(os.Stderr, "Error: requesting sign-in code: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("A sign-in code was sent to %s.\n", email)

	fmt.Print("Code: ")
	codeBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading code: %v\n", err)
		os.Exit(1)
	}

	result, err := session.VerifySignInCode(ctx, email, string(codeBytes), dashboard)
	if err != nil {
		if api.IsKind(err, api.KindAuthFailed) {
			fmt.Fprintln(os.Stderr, "Error: that code was not accepted")
		} else {
			fmt.Fprintf(os.Stderr, "Error: verifying code: %v\n", err)
		}
		os.Exit(1)
	}

	tokens.Set(result.Token)
	fmt.Printf("Signed in as %s (%s).\n", result.User.Email, result.User.ID)
	fmt.Printf("Token (export AUTHC_TOKEN to reuse): %s\n", result.Token)
}

func runAnonymous(ctx context.Context, session *auth.SessionChannel, tokens *tokenHolder) {
	result, err := session.SignInAnonymously(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: anonymous sign-in: %v\n", err)
		os.Exit(1)
	}
	tokens.Set(result.Token)
	fmt.Printf("Signed in anonymously as %s.\n", result.User.ID)
	fmt.Printf("Token (export AUTHC_TOKEN to reuse): %s\n", result.Token)
}

func runWhoami(ctx context.Context, session *auth.SessionChannel) {
	user, err := session.CurrentUser(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: looking up current user: %v\n", err)
		os.Exit(1)
	}
	if user == nil {
		fmt.Println("Not signed in.")
		return
	}
	if user.Anonymous() {
		fmt.Printf("Anonymous user %s\n", user.ID)
		return
	}
	fmt.Printf("%s (%s)\n", user.Email, user.ID)
}

func setupLogging(level string, debug bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func printHelp() {
	fmt.Println(`authctl - auth backend client

Usage:
  authctl [flags] <command> [args]

Commands:
  login [--dashboard] <email>   Request a sign-in code, verify it, print the token
  anonymous                     Sign in without credentials
  whoami                        Show the current user (uses AUTHC_TOKEN)
  logout                        Notify the backend and clear the local session

Flags:
  -c, --config <path>   YAML config file
  -d, --debug           Verbose logging
  -h, --help            Show this help

Environment:
  AUTHC_BASE_URL   Backend base URL
  AUTHC_TOKEN      Bearer token from a previous login
  AUTHC_TIMEOUT    Request timeout (e.g. 5s)
  AUTHC_LOG_LEVEL  zerolog level name`)
}
