package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/setting"
	"github.com/trezcool/beasiswa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrSvc     user.Service
	settingSvc *setting.Service
	validate   *validator.Validate
	translator ut.Translator
	// migrate runs a goose command on the app database
	migrate func(command string, args ...string) error
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser --name NAME --email EMAIL [--admin]  - create a user, the password is prompted next")
	fmt.Fprintln(cli.out, "  resetpassword --email EMAIL                  - reset a user's password, the password is prompted next")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]                    - run a migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  setting [--allow-admin-signup=true|false]    - show or update the portal settings")
}

func (cli *commandLine) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(cli.out)
	fs.Usage = func() {
		fmt.Fprintf(cli.out, "Usage of %s:\n", name)
		fs.PrintDefaults()
	}
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()
	switch args[1] {
	case "adduser":
		fs := cli.newFlagSet("adduser")
		name := fs.String("name", "", "The user's full name.")
		email := fs.String("email", "", "The user's email. The password will be prompted next.")
		admin := fs.Bool("admin", false, "Give the admin role to the user.")
		if err := fs.Parse(args[2:]); err != nil {
			return cli.parseErr(err)
		}
		if *name == "" || *email == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			fs.Usage()
			return errHelp
		}
		return cli.describe(cli.addUser(ctx, *name, *email, pwd, *admin))

	case "resetpassword":
		fs := cli.newFlagSet("resetpassword")
		email := fs.String("email", "", "The user's email. The password will be prompted next.")
		if err := fs.Parse(args[2:]); err != nil {
			return cli.parseErr(err)
		}
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			fs.Usage()
			return errHelp
		}
		return cli.describe(cli.resetPassword(ctx, *email, pwd))

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2], args[3:]...)

	case "setting":
		fs := cli.newFlagSet("setting")
		allowAdminSignup := fs.Bool("allow-admin-signup", false, "Let new users register as admins.")
		if err := fs.Parse(args[2:]); err != nil {
			return cli.parseErr(err)
		}
		var data setting.UpdateSettings
		if fs.Changed("allow-admin-signup") {
			data.AllowAdminSignup = allowAdminSignup
		}
		return cli.updateSettings(ctx, data)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) parseErr(err error) error {
	if err == pflag.ErrHelp {
		return errHelp
	}
	return err
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

// describe flattens validation errors on a single line.
func (cli *commandLine) describe(err error) error {
	if err == nil {
		return nil
	}

	var msgs []string
	switch verr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range verr {
			msgs = append(msgs, fe.Field()+": "+fe.Translate(cli.translator))
		}
	case *core.ValidationError:
		for _, fe := range verr.Fields {
			msgs = append(msgs, fe.Field+": "+fe.Error)
		}
	default:
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

// addUser creates an active user; admin signup settings do not apply.
func (cli *commandLine) addUser(ctx context.Context, name, email, pwd string, isAdmin bool) error {
	nu := user.NewUser{FullName: name, Email: email, Password: pwd, PasswordConfirm: pwd}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}

	role := user.RoleUser
	if isAdmin {
		role = user.RoleAdmin
	}
	usr, err := cli.usrSvc.Create(ctx, nu, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "User %q created with the %s role.\n", usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	data := user.AdminUpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err = data.Validate(ctx, usr, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	if _, err = cli.usrSvc.SetPassword(ctx, usr, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Password of %q updated.\n", usr.Email)
	return nil
}

func (cli *commandLine) updateSettings(ctx context.Context, data setting.UpdateSettings) error {
	settings, err := cli.settingSvc.Update(ctx, 0, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "allow_admin_signup = %t\n", settings.AllowAdminSignup)
	return nil
}
