package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/clipkit/pkg/clipkit/vault"
)

// StoreOptions holds flags shared by the store subcommands.
type StoreOptions struct {
	*RootOptions
	DB         string
	Passphrase string
	Encrypt    bool
	TTL        time.Duration
}

// NewStoreCommand creates the store command and its subcommands.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Read and write vault entries",
		Long: `Read and write entries in a vault database.

With --passphrase, values written with --encrypt are sealed with a key
derived from the passphrase; encrypted values are opened transparently
on get.

Example:
  clipkit store put cart '{"sku":"42"}' --db clip.db --passphrase s3cret --encrypt
  clipkit store get cart --db clip.db --passphrase s3cret`,
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "vault database path (required)")
	cmd.PersistentFlags().StringVar(&opts.Passphrase, "passphrase", "", "passphrase for encrypted entries")
	_ = cmd.MarkPersistentFlagRequired("db")

	put := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				return storePut(ctx, opts, v, args[0], args[1], cmd)
			})
		},
	}
	put.Flags().BoolVar(&opts.Encrypt, "encrypt", false, "encrypt the value (requires --passphrase)")
	put.Flags().DurationVar(&opts.TTL, "ttl", 0, "retention override, such as 24h (default: settings retention)")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				return storeGet(ctx, opts, v, args[0], cmd)
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm <key>",
		Short: "Remove a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				if err := v.Remove(ctx, args[0]); err != nil {
					return WrapExitError(ExitCommandError, "remove", err)
				}
				return nil
			})
		},
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List live keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, opts, func(ctx context.Context, v *vault.Vault) error {
				return storeList(ctx, opts, v, cmd)
			})
		},
	}

	cmd.AddCommand(put, get, rm, ls)
	return cmd
}

func withVault(cmd *cobra.Command, opts *StoreOptions, fn func(ctx context.Context, v *vault.Vault) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(opts.DB)
	if err != nil {
		return err
	}
	v, err := openVault(ctx, store, opts.Passphrase, opts.logger(cmd))
	if err != nil {
		_ = store.Close()
		return err
	}
	defer func() { err = errors.Join(err, v.Close()) }()

	return fn(ctx, v)
}

func storePut(ctx context.Context, opts *StoreOptions, v *vault.Vault, key, value string, cmd *cobra.Command) error {
	if key == saltKey {
		return NewExitError(ExitCommandError, fmt.Sprintf("key %q is reserved", saltKey))
	}
	if opts.Encrypt && opts.Passphrase == "" {
		return NewExitError(ExitCommandError, "--encrypt requires --passphrase")
	}

	var sopts []vault.StoreOption
	if opts.Encrypt {
		sopts = append(sopts, vault.Encrypted())
	}
	if opts.TTL > 0 {
		sopts = append(sopts, vault.WithRetention(opts.TTL))
	}
	if err := v.Store(ctx, key, []byte(value), sopts...); err != nil {
		return WrapExitError(ExitCommandError, "store", err)
	}

	return opts.formatter(cmd).Print(map[string]any{"key": key, "encrypted": opts.Encrypt}, func(w io.Writer) {
		fmt.Fprintf(w, "stored %s\n", key)
	})
}

func storeGet(ctx context.Context, opts *StoreOptions, v *vault.Vault, key string, cmd *cobra.Command) error {
	value, ok, err := v.Retrieve(ctx, key)
	switch {
	case errors.Is(err, vault.ErrDecryptionFailed):
		return WrapExitError(ExitFailure, "cannot decrypt "+key+" (wrong passphrase?)", err)
	case err != nil:
		return WrapExitError(ExitCommandError, "retrieve", err)
	case !ok:
		return NewExitError(ExitFailure, fmt.Sprintf("key %q not found or expired", key))
	}

	return opts.formatter(cmd).Print(map[string]string{"key": key, "value": string(value)}, func(w io.Writer) {
		fmt.Fprintln(w, string(value))
	})
}

func storeList(ctx context.Context, opts *StoreOptions, v *vault.Vault, cmd *cobra.Command) error {
	keys, err := v.Keys(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "list", err)
	}
	keys = slices.DeleteFunc(keys, func(k string) bool { return k == saltKey })

	return opts.formatter(cmd).Print(keys, func(w io.Writer) {
		for _, k := range keys {
			fmt.Fprintln(w, k)
		}
	})
}
