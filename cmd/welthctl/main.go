package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iho/welth/internal/adapter/http/dto"
	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/infrastructure/auth"
	"github.com/iho/welth/internal/usecase"
)

// jobAliases maps the short names accepted by "jobs run" to job names.
var jobAliases = map[string]string{
	"recurring":      usecase.JobRecurringTransactions,
	"budget-alerts":  usecase.JobBudgetAlerts,
	"monthly-report": usecase.JobMonthlyReports,
}

type options struct {
	baseURL string
	token   string
	owner   string
	timeout time.Duration
}

func (o *options) client() *apiClient {
	return newAPIClient(o.baseURL, o.token, o.owner, o.timeout)
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "welthctl",
		Short:         "Welth CLI tool",
		Long:          `A command line interface for interacting with the Welth API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("WELTH_URL", "http://localhost:8080"), "Base URL of the Welth API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("WELTH_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringVar(&opts.owner, "owner", os.Getenv("WELTH_OWNER"), "Owner ID sent as X-Owner-ID when auth is disabled")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		accountsCmd(opts),
		transactionsCmd(opts),
		jobsCmd(opts),
		ledgerCmd(opts),
		tokenCmd(),
	)

	return rootCmd
}

func accountsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListAccountsResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/accounts/", nil, nil, &resp); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tBALANCE\tDEFAULT\tTRANSACTIONS")
			for _, a := range resp.Accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%d\n",
					a.ID, truncate(a.Name, 24), a.Type, a.Balance, a.IsDefault, a.TransactionCount)
			}
			return w.Flush()
		},
	}

	var req dto.CreateAccountRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AccountResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/accounts/", nil, req, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	createCmd.Flags().StringVar(&req.Name, "name", "", "Account name")
	createCmd.Flags().StringVar(&req.Type, "type", string(domain.AccountTypeCurrent), "CURRENT or SAVINGS")
	createCmd.Flags().StringVar(&req.InitialBalance, "initial-balance", "0", "Opening balance")
	createCmd.Flags().BoolVar(&req.IsDefault, "default", false, "Make this the default account")
	_ = createCmd.MarkFlagRequired("name")

	cmd.AddCommand(listCmd, createCmd)
	return cmd
}

func transactionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Transaction operations",
	}

	var (
		accountID string
		limit     int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if accountID != "" {
				query.Set("account_id", accountID)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			var resp dto.ListTransactionsResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/transactions/", query, nil, &resp); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
			for _, t := range resp.Transactions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Date.Format("2006-01-02"), t.Type, t.Amount, t.Category, truncate(t.Description, 32))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&accountID, "account", "", "Only transactions of this account")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of transactions")

	var req dto.TransactionRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Date == "" {
				req.Date = time.Now().UTC().Format("2006-01-02")
			}
			var resp dto.TransactionResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/transactions/", nil, req, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	createCmd.Flags().StringVar(&req.AccountID, "account", "", "Account ID")
	createCmd.Flags().StringVar(&req.Type, "type", string(domain.TransactionTypeExpense), "EXPENSE or INCOME")
	createCmd.Flags().StringVar(&req.Amount, "amount", "", "Positive amount, at most 2 decimals")
	createCmd.Flags().StringVar(&req.Date, "date", "", "Date (YYYY-MM-DD), defaults to today")
	createCmd.Flags().StringVar(&req.Category, "category", "", "Category")
	createCmd.Flags().StringVar(&req.Description, "description", "", "Free-text description")
	createCmd.Flags().BoolVar(&req.IsRecurring, "recurring", false, "Repeat this transaction")
	createCmd.Flags().StringVar(&req.RecurringInterval, "interval", "", "DAILY, WEEKLY, MONTHLY or YEARLY")
	_ = createCmd.MarkFlagRequired("account")
	_ = createCmd.MarkFlagRequired("amount")
	_ = createCmd.MarkFlagRequired("category")

	cmd.AddCommand(listCmd, createCmd)
	return cmd
}

func jobsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Background job operations",
	}

	runCmd := &cobra.Command{
		Use:       "run recurring|budget-alerts|monthly-report",
		Short:     "Run a job now and print its report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"recurring", "budget-alerts", "monthly-report"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ok := jobAliases[args[0]]
			if !ok {
				return fmt.Errorf("unknown job %q", args[0])
			}

			var report usecase.JobReport
			err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/admin/jobs/"+name+"/run", nil, nil, &report)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), &report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d entities failed", report.Failed, report.Processed+report.Skipped+report.Failed)
			}
			return nil
		},
	}

	cmd.AddCommand(runCmd)
	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every balance matches its transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report usecase.ReconciliationReport
			err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/admin/reconciliation", nil, nil, &report)

			// Inconsistent ledgers are reported with 409 and the report as body.
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				if jsonErr := json.Unmarshal(apiErr.Body, &report); jsonErr != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Consistent() {
				fmt.Fprintf(out, "Consistency check PASSED (%d accounts)\n", report.TotalAccounts)
				return nil
			}

			fmt.Fprintf(out, "Consistency check FAILED: %d of %d accounts differ\n", len(report.Discrepancies), report.TotalAccounts)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tOWNER\tRECORDED\tCALCULATED\tDIFFERENCE")
			for _, d := range report.Discrepancies {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.AccountID, d.OwnerID, d.RecordedBalance, d.CalculatedBalance, d.Difference)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return errors.New("ledger is inconsistent")
		},
	}

	cmd.AddCommand(checkCmd)
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret   string
		identity domain.Identity
		role     string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			token, err := auth.NewJWTManager(secret, ttl).Generate(identity, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().StringVar(&identity.UserID, "user", "", "Owner ID (subject)")
	cmd.Flags().StringVar(&identity.Email, "email", "", "Email claim")
	cmd.Flags().StringVar(&identity.Name, "name", "", "Name claim")
	cmd.Flags().StringVar(&role, "role", "", `Role claim, "admin" for the operator endpoints`)
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

