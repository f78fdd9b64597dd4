// Command anime-passwd manages password hashes for the anime users file.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/anime-crud/internal/platform/auth"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "anime-passwd",
		Short:         "Encode and check passwords for the anime users file",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newHashCmd(), newVerifyCmd(), newCheckUsersCmd())
	return root
}

func newHashCmd() *cobra.Command {
	var scheme string
	cmd := &cobra.Command{
		Use:   "hash [password]",
		Short: "Print the encoded hash of a password (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := passwordArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			encoded, err := auth.EncodePassword(scheme, raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", auth.SchemeBcrypt, "hash scheme: bcrypt or pbkdf2")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <encoded> [password]",
		Short: "Check a password against an encoded hash",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := passwordArg(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			if !auth.CheckPassword(args[0], raw) {
				return errors.New("password does not match")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newCheckUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-users <file>",
		Short: "Validate a users YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := auth.LoadDirectory(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d users\n", args[0], users.Len())
			return nil
		},
	}
}

// passwordArg returns args[0], or the first line of in when no argument was
// given.
func passwordArg(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
