package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/config"
	"github.com/tendant/content-guardian/pkg/guardian/ledger"
	"github.com/tendant/content-guardian/pkg/guardian/similarity"
)

// contentFlags are shared by register and verify
type contentFlags struct {
	contentType string
	file        string
	embed       bool
}

func (f *contentFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.contentType, "type", "t", "text", "content type: text or image")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the content from a file")
	cmd.Flags().BoolVar(&f.embed, "embed", true, "embed image files as data URIs instead of storing their path")
}

// body resolves the content body from the positional argument or --file
func (f *contentFlags) body(args []string) (string, error) {
	if f.file == "" {
		if len(args) == 0 {
			return "", fmt.Errorf("content is required: pass it as an argument or use --file")
		}
		return args[0], nil
	}

	if guardian.ContentType(f.contentType) == guardian.ContentTypeImage && !f.embed {
		abs, err := filepath.Abs(f.file)
		if err != nil {
			return "", err
		}
		return abs, nil
	}

	data, err := os.ReadFile(f.file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.file, err)
	}
	if guardian.ContentType(f.contentType) == guardian.ContentTypeImage {
		mimeType := mime.TypeByExtension(filepath.Ext(f.file))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		return similarity.DataURI(mimeType, data), nil
	}
	return string(data), nil
}

// NewRegisterCommand creates the register command
func NewRegisterCommand() *cobra.Command {
	var flags contentFlags
	var title, owner string

	cmd := &cobra.Command{
		Use:   "register [content]",
		Short: "Register content",
		Long:  `Register text or an image. The content is stored, anchored on the ledger and persisted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := flags.body(args)
			if err != nil {
				return err
			}

			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}

			record, err := svc.Register(cmd.Context(), guardian.RegisterRequest{
				Title: title,
				Type:  guardian.ContentType(flags.contentType),
				Body:  body,
				Owner: owner,
			})
			if err != nil {
				return fmt.Errorf("register failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Content ID: %s\n", record.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Transaction: %s\n", record.LedgerTxID)
			fmt.Fprintf(cmd.OutOrStdout(), "Locator: %s\n", record.StorageLocator)
			fmt.Fprintf(cmd.OutOrStdout(), "Owner: %s\n", record.Owner)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&title, "title", "", "title of the work (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "owning account (defaults to the first ledger account)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	var flags contentFlags

	cmd := &cobra.Command{
		Use:   "verify [content]",
		Short: "Find registered content similar to the given content",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := flags.body(args)
			if err != nil {
				return err
			}

			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.Verify(cmd.Context(), guardian.VerifyRequest{
				Type: guardian.ContentType(flags.contentType),
				Body: body,
			})
			if err != nil {
				return fmt.Errorf("verify failed: %w", err)
			}

			if !result.Matched {
				fmt.Fprintln(cmd.OutOrStdout(), result.Message)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Match: %.2f%%\n", result.MatchPercentage)
			fmt.Fprintf(cmd.OutOrStdout(), "Content ID: %s (%s)\n", result.ContentID, result.Title)
			fmt.Fprintf(cmd.OutOrStdout(), "Owner: %s\n", result.Owner)
			fmt.Fprintf(cmd.OutOrStdout(), "Registered: %s\n", result.RegistrationDate.Format("2006-01-02T15:04:05Z07:00"))
			if result.ExactMatch {
				fmt.Fprintln(cmd.OutOrStdout(), "Exact copy of the registered content")
			}
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

// NewLicenseCommand creates the license command
func NewLicenseCommand() *cobra.Command {
	var licenseType string
	var permissions []string

	cmd := &cobra.Command{
		Use:   "license <content-id>",
		Short: "Issue a license on registered content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}

			issued, err := svc.IssueLicense(cmd.Context(), guardian.IssueLicenseRequest{
				ContentID:   args[0],
				LicenseType: licenseType,
				Permissions: permissions,
			})
			if err != nil {
				return fmt.Errorf("license failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "License ID: %s\n", issued.License.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "License URL: %s\n", issued.LicenseURL)
			fmt.Fprintf(cmd.OutOrStdout(), "Expires: %s\n", issued.License.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}

	cmd.Flags().StringVar(&licenseType, "license-type", "", "license type, e.g. commercial (required)")
	cmd.Flags().StringSliceVarP(&permissions, "permission", "p", nil, "granted permission, repeatable (required)")
	_ = cmd.MarkFlagRequired("license-type")
	_ = cmd.MarkFlagRequired("permission")

	return cmd
}

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <content-id>",
		Short: "Show a registered record and its licenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			record, err := svc.GetContent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), record)
		},
	}
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered content",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			records, err := svc.ListContent(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tTITLE\tOWNER\tLICENSES\tREGISTERED")
			for _, rec := range records {
				if contentType != "" && string(rec.Type) != contentType {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					rec.ID, rec.Type, rec.Title, rec.Owner, len(rec.Licenses),
					rec.RegisteredAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&contentType, "type", "t", "", "only list content of this type")
	return cmd
}

// NewLedgerAccountsCommand creates the ledger-accounts command
func NewLedgerAccountsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger-accounts",
		Short: "List ledger accounts, default owner first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			accounts, err := svc.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			for _, account := range accounts {
				fmt.Fprintln(cmd.OutOrStdout(), account)
			}
			return nil
		},
	}
}

// NewLedgerVerifyCommand creates the ledger-verify command
func NewLedgerVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger-verify",
		Short: "Check the ledger hash chain for tampering",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.WithEnv())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			l, err := cfg.BuildLedger(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := l.Entries(cmd.Context())
			if err != nil {
				return err
			}
			if err := ledger.VerifyChain(entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ledger intact: %d entries\n", len(entries))
			return nil
		},
	}
}

// NewEnvCommand creates the env command
func NewEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the supported environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			help, err := config.EnvHelp()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), help)
			return nil
		},
	}
}
