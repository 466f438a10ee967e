package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// stdin is swapped in tests.
var stdin io.Reader = os.Stdin

// readPassword reads a single line from stdin for --password-stdin.
func readPassword() (string, error) {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func notEmpty(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func newLoginCmd() *cobra.Command {
	var username string
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Long:  "Log in with username and password. Without flags an interactive form is shown.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			var password string
			if passwordStdin {
				p, err := readPassword()
				if err != nil {
					return err
				}
				password = p
			}
			if username == "" || password == "" {
				fields := []huh.Field{}
				if username == "" {
					fields = append(fields, huh.NewInput().Title("Username").Value(&username).Validate(notEmpty("username")))
				}
				if password == "" {
					fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password).Validate(notEmpty("password")))
				}
				if err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx); err != nil {
					return err
				}
			}
			return runLogin(ctx, a, strings.TrimSpace(username), password)
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func runLogin(ctx context.Context, a *app, username, password string) error {
	if err := a.session.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login failed: %s", client.UserMessage(err))
	}
	u := a.session.User()
	if a.json {
		return a.printJSON(u)
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", u.DisplayName(), u.Role) //nolint:errcheck
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the saved session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, a *app, _ []string) error {
			return runLogout(a)
		}),
	}
}

func runLogout(a *app) error {
	if err := a.session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.") //nolint:errcheck
	return nil
}

func newRegisterCmd() *cobra.Command {
	var reg domain.Registration
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long:  "Create a buyer or provider account. Missing fields are asked for interactively.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			if passwordStdin {
				p, err := readPassword()
				if err != nil {
					return err
				}
				reg.Password = p
			}
			if reg.Username == "" || reg.Email == "" || reg.Password == "" || reg.Role == "" {
				if reg.Role == "" {
					reg.Role = domain.RoleBuyer
				}
				form := huh.NewForm(huh.NewGroup(
					huh.NewSelect[string]().
						Title("Role").
						Options(huh.NewOption("Buyer", domain.RoleBuyer), huh.NewOption("Provider", domain.RoleProvider)).
						Value(&reg.Role),
					huh.NewInput().Title("Username").Value(&reg.Username).Validate(notEmpty("username")),
					huh.NewInput().Title("Email").Value(&reg.Email).Validate(notEmpty("email")),
					huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&reg.Password).Validate(notEmpty("password")),
				))
				if err := form.RunWithContext(ctx); err != nil {
					return err
				}
			}
			return runRegister(ctx, a, reg)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&reg.Username, "username", "", "Username")
	f.StringVar(&reg.Email, "email", "", "Email address")
	f.StringVar(&reg.Role, "role", "", "buyer or provider")
	f.StringVar(&reg.Phone, "phone", "", "Phone number")
	f.StringVar(&reg.FirstName, "first-name", "", "First name")
	f.StringVar(&reg.LastName, "last-name", "", "Last name")
	f.BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func runRegister(ctx context.Context, a *app, reg domain.Registration) error {
	if reg.Role != domain.RoleBuyer && reg.Role != domain.RoleProvider {
		return fmt.Errorf("role must be %q or %q", domain.RoleBuyer, domain.RoleProvider)
	}
	if err := a.session.Register(ctx, reg); err != nil {
		var b strings.Builder
		b.WriteString("registration failed: " + client.UserMessage(err))
		fields := client.FieldErrors(err)
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, m := range fields[k] {
				fmt.Fprintf(&b, "\n  %s: %s", k, m)
			}
		}
		return errors.New(b.String())
	}
	fmt.Fprintf(a.out, "Account %s created. Run `sawa login -u %s` to sign in.\n", reg.Username, reg.Username) //nolint:errcheck
	return nil
}

func newWhoamiCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			return runWhoami(ctx, a, remote)
		}),
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the profile from the server instead of the saved session")
	return cmd
}

func runWhoami(ctx context.Context, a *app, remote bool) error {
	u := a.session.User()
	if remote {
		p, err := fetch.Do(ctx, a.session, a.api.GetProfile)
		if err != nil {
			return err
		}
		u = p
	}
	if a.json {
		return a.printJSON(u)
	}
	fmt.Fprintf(a.out, "%s (@%s)\n", u.DisplayName(), u.Username) //nolint:errcheck
	fmt.Fprintf(a.out, "  role:  %s\n  email: %s\n", u.Role, u.Email) //nolint:errcheck
	if exp, ok := a.session.TokenExpiry(); ok {
		fmt.Fprintf(a.out, "  token expires: %s\n", exp.Local().Format("2006-01-02 15:04")) //nolint:errcheck
	}
	return nil
}

// writeClipboard is swapped in tests.
var writeClipboard = clipboard.WriteAll

func newTokenCmd() *cobra.Command {
	var copyToken bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the current access token",
		Args:  cobra.NoArgs,
		RunE: protected(func(_ context.Context, a *app, _ []string) error {
			return runToken(a, copyToken)
		}),
	}
	cmd.Flags().BoolVar(&copyToken, "copy", false, "Copy the token to the clipboard instead of printing it")
	return cmd
}

func runToken(a *app, copyToken bool) error {
	tok := a.session.AccessToken()
	if !copyToken {
		fmt.Fprintln(a.out, tok) //nolint:errcheck
		return nil
	}
	if err := writeClipboard(tok); err != nil {
		return fmt.Errorf("copy token: %w", err)
	}
	fmt.Fprintln(a.out, "Access token copied to clipboard.") //nolint:errcheck
	return nil
}
