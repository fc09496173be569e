package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/txengine/internal/adapter/csvio"
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/auth"
	"github.com/iho/txengine/internal/infrastructure/idgen"
	"github.com/iho/txengine/internal/infrastructure/logger"
	"github.com/iho/txengine/internal/usecase"
)

// errEntriesRejected is returned in strict mode when any entry failed.
var errEntriesRejected = errors.New("one or more entries were rejected")

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		logLevel  string
		logFormat string
		precision int32
		strict    bool
	)

	rootCmd := &cobra.Command{
		Use:   "txengine <transactions.csv>",
		Short: "Apply a CSV of client transactions and print the final account balances",
		Long: `txengine reads deposits, withdrawals, disputes, resolves and chargebacks
from a CSV file in order and writes one row per client account to stdout.
Rejected entries are logged to stderr and do not stop processing.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := domain.ValidatePrecision(precision); err != nil {
				return fmt.Errorf("--precision: %w", err)
			}

			log := logger.New(logger.Config{Level: logLevel, Format: logFormat, Output: stderr})

			batchUC := usecase.NewBatchUseCase(idgen.NewULIDGenerator(), nil, log, precision)
			return processFile(cmd.Context(), args[0], stdout, batchUC, precision, strict)
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.Flags().StringVar(&logLevel, "log-level", "error", "Log level for diagnostics on stderr (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "console", "Log format (json, console)")
	rootCmd.Flags().Int32Var(&precision, "precision", domain.DefaultDisplayPrecision, "Decimal places in the output")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Exit with a non-zero status if any entry was rejected")

	rootCmd.AddCommand(submitCmd(stdout), tokenCmd(stdout))

	return rootCmd
}

func processFile(ctx context.Context, path string, out io.Writer, batchUC *usecase.BatchUseCase, precision int32, strict bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	result, err := batchUC.ProcessBatch(ctx, usecase.ProcessBatchInput{
		Source: csvio.NewReader(f),
		Sink:   csvio.NewWriter(out, precision),
	})
	if err != nil {
		return err
	}

	if strict && len(result.Failures) > 0 {
		return fmt.Errorf("%w: %d of %d", errEntriesRejected, len(result.Failures), result.Entries)
	}

	return nil
}

// submitCmd sends a file to a running txengine server instead of
// processing it locally.
func submitCmd(stdout io.Writer) *cobra.Command {
	var (
		baseURL        string
		timeout        time.Duration
		idempotencyKey string
		token          string
	)

	cmd := &cobra.Command{
		Use:   "submit <transactions.csv>",
		Short: "Submit a CSV batch to a txengine server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: timeout}
			return submitFile(cmd.Context(), client, submitOptions{
				baseURL:        baseURL,
				idempotencyKey: idempotencyKey,
				token:          token,
			}, args[0], stdout)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the txengine API")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key sent with the batch")
	cmd.Flags().StringVar(&token, "token", os.Getenv("TXENGINE_TOKEN"), "Bearer token for servers with AUTH_ENABLED")

	return cmd
}

type submitOptions struct {
	baseURL        string
	idempotencyKey string
	token          string
}

func submitFile(ctx context.Context, client *http.Client, opts submitOptions, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.baseURL+"/api/v1/batches", f)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Accept", "text/csv")
	if opts.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", opts.idempotencyKey)
	}
	if opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("batch rejected (status %d): %s", resp.StatusCode, body)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return nil
}

// tokenCmd signs a bearer token with the server's JWT_SECRET.
func tokenCmd(stdout io.Writer) *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Sign a bearer token for a txengine server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(args[0])
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(stdout, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
