package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/animequote/internal/bridge"
	"github.com/ppiankov/animequote/internal/model"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over JSON-RPC",
	Long: `Serve exposes every skill to other agents over JSON-RPC 2.0:
- POST /a2a (or /) accepts message/send, tasks/get and tasks/cancel
- GET /.well-known/agent.json describes the agent and its skills
- GET /health reports readiness

Tasks are persisted in the configured storage.

Example:
  animequote serve
  animequote serve --addr :9090
  ANIMEQUOTE_SERVER_PUBLIC_URL=https://quotes.example.com animequote serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
	addLLMFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
		if cfg.Server.PublicURL == model.DefaultConfig().Server.PublicURL {
			cfg.Server.PublicURL = ""
		}
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.withStore(); err != nil {
		return err
	}
	ag, err := a.newAgent()
	if err != nil {
		return err
	}

	server := bridge.NewServer(ag, a.store, bridge.Options{
		Version:        Version,
		PublicURL:      publicURL(cfg.Server.PublicURL, cfg.Server.Addr),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Serving %d skills on %s\n", len(ag.Skills()), cfg.Server.Addr)
	if a.reporter.IsEnabled() {
		fmt.Fprintf(os.Stderr, "Language model: %s/%s\n", a.reporter.ProviderName(), cfg.LLM.Model)
	} else {
		fmt.Fprintf(os.Stderr, "Language model: disabled (requests are parsed without a model)\n")
	}

	return server.Run(ctx, cfg.Server.Addr)
}

// publicURL falls back to the listen address when no public URL is configured
func publicURL(configured, addr string) string {
	if configured != "" {
		return configured
	}
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host
}
