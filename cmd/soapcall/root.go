package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	soap "github.com/m29h/soapconnector"
)

var (
	logLevel             string
	logFormat            string
	readTimeoutHeader    string
	connectTimeoutHeader string
	readTimeout          time.Duration

	client *soap.Client
)

var rootCmd = &cobra.Command{
	Use:   "soapcall",
	Short: "Invoke SOAP endpoints from a connector parameter file",
	Long: "soapcall runs the webservice connector outside of a workflow engine. " +
		"Parameters are read from a YAML file using the connector's input names.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&readTimeoutHeader, "read-timeout-header", soap.DefaultReadTimeoutHeader, "reserved HTTP header read as the read timeout in milliseconds")
	rootCmd.PersistentFlags().StringVar(&connectTimeoutHeader, "connect-timeout-header", soap.DefaultConnectTimeoutHeader, "reserved HTTP header read as the connect timeout in milliseconds")
	rootCmd.PersistentFlags().DurationVar(&readTimeout, "read-timeout", 0, "read timeout when the parameters do not set one (0 = none)")
}

func setup(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", logLevel)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts)
	default:
		return fmt.Errorf("invalid --log-format %q (must be text or json)", logFormat)
	}

	client = soap.NewClient(
		soap.WithLogger(slog.New(handler)),
		soap.WithReadTimeoutHeader(readTimeoutHeader),
		soap.WithConnectTimeoutHeader(connectTimeoutHeader),
		soap.WithReadTimeout(readTimeout),
	)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
