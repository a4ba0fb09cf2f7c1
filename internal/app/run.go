package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/yukikurage/tasktide/internal/database"
)

var (
	ErrUnknownCommand     = errors.New("unknown command")
	ErrCredentialsInvalid = errors.New("credentials rejected")
)

const usage = `usage: tasktide [command]

commands:
  rpc                              serve shell calls on stdin/stdout (default)
  user add|passwd|verify|delete -username NAME
                                   administer credentials; passwords are read
                                   from stdin, one per line
  user list                        list usernames
  encrypt -in PLAIN -out KEYED     copy a plaintext database into a keyed one
  prune                            delete unused status and origin labels
  migrate                          apply migrations and print schema versions`

// Run is the entry point of the binary. args excludes the program name.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := ParseCommand(args)
	if cmd == CommandUnknown {
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	if len(args) > 0 {
		args = args[1:]
	}

	cfg, log, err := Init(stderr)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if cmd == CommandEncrypt {
		return runEncrypt(args, cfg.DatabaseKey, stderr)
	}

	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("shutdown failed", slog.Any("error", err))
		}
	}()

	switch cmd {
	case CommandUser:
		return a.runUser(args, stdin, stdout, stderr)
	case CommandPrune:
		removed, err := a.Lookups.PruneUnused()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "removed %d unused labels\n", removed)
		return nil
	case CommandMigrate:
		versions, err := a.MigrationVersions()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %d\n%s: %d\n",
			database.SchemaTasks, versions[database.SchemaTasks],
			database.SchemaAuth, versions[database.SchemaAuth])
		return nil
	default:
		return a.ServeStdio(ctx, stdin, stdout)
	}
}

func runEncrypt(args []string, key string, stderr io.Writer) error {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "plaintext database")
	out := fs.String("out", "", "keyed database to create")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		fs.Usage()
		return errors.New("encrypt needs -in and -out")
	}
	return database.ExportEncrypted(*in, *out, key)
}

func (a *App) runUser(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("%w: user needs a subcommand", ErrUnknownCommand)
	}
	action := args[0]

	if action == "list" {
		usernames, err := a.Auth.ListUsers()
		if err != nil {
			return err
		}
		for _, u := range usernames {
			fmt.Fprintln(stdout, u)
		}
		return nil
	}

	fs := flag.NewFlagSet("user "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	username := fs.String("username", "", "account name")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *username == "" {
		fs.Usage()
		return errors.New("-username is required")
	}

	lines := bufio.NewReader(stdin)

	switch action {
	case "add":
		password, err := readLine(lines)
		if err != nil {
			return err
		}
		if _, err := a.Auth.Register(*username, password); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "user %s created\n", *username)
	case "passwd":
		oldPassword, err := readLine(lines)
		if err != nil {
			return err
		}
		newPassword, err := readLine(lines)
		if err != nil {
			return err
		}
		if err := a.Auth.ChangePassword(*username, oldPassword, newPassword); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "password of %s changed\n", *username)
	case "verify":
		password, err := readLine(lines)
		if err != nil {
			return err
		}
		ok, err := a.Auth.VerifyCredentials(*username, password)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCredentialsInvalid
		}
		fmt.Fprintln(stdout, "credentials valid")
	case "delete":
		if err := a.Auth.DeleteUser(*username); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "user %s deleted\n", *username)
	default:
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("%w: user %s", ErrUnknownCommand, action)
	}
	return nil
}

// readLine returns the next stdin line without its line ending. A final
// line without a newline is accepted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
