package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"library-ledger/library"
)

// login authenticates --user (or a prompted username) and checks perm.
func (a *app) login(perm library.Permission) (library.User, error) {
	username := a.user
	if username == "" {
		var ok bool
		if username, ok = a.prompt.line("Username: "); !ok {
			return library.User{}, errors.New("no username given")
		}
	}
	pw, err := a.prompt.password("Password: ")
	if err != nil {
		return library.User{}, err
	}
	u, err := a.mgr.Login(username, pw)
	if err != nil {
		return library.User{}, errors.New(describe(err))
	}
	if err := a.mgr.Authorize(u, perm); err != nil {
		return library.User{}, errors.New(describe(err))
	}
	return u, nil
}

func newRegisterCmd(a *app) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Long: `Create a Member account. Creating an Admin account requires
authenticating as an existing admin with --user.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := library.ParseRole(role)
			if err != nil {
				return err
			}
			username := args[0]
			if a.mgr.UserExists(username) {
				return errors.New("username exists")
			}

			var actor library.User
			if r == library.RoleAdmin {
				if actor, err = a.login(library.PermManageBooks); err != nil {
					return err
				}
			}

			p1, err := a.prompt.password("New password: ")
			if err != nil {
				return err
			}
			p2, err := a.prompt.password("Confirm password: ")
			if err != nil {
				return err
			}
			if p1 != p2 {
				return errors.New("passwords mismatch")
			}

			if r == library.RoleAdmin {
				err = a.mgr.RegisterWithRole(actor, username, p1, r)
			} else {
				err = a.mgr.Register(username, p1)
			}
			if err != nil {
				return errors.New(describe(err))
			}
			fmt.Fprintf(a.out, "Registered %s (%s)\n", username, r)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "Member", "account role: Member or Admin")
	return cmd
}

func newBooksCmd(a *app) *cobra.Command {
	books := &cobra.Command{
		Use:   "books",
		Short: "List, search, add and delete books",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Display all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(library.PermBrowse); err != nil {
				return err
			}
			return a.printBooks(a.mgr.GetAllBooks(), "No books available.")
		},
	}

	search := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search by title, author or exact ISBN",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(library.PermBrowse); err != nil {
				return err
			}
			kw := strings.Join(args, " ")
			return a.printBooks(a.mgr.SearchBooks(kw), "No book found.")
		},
	}

	var title, author string
	add := &cobra.Command{
		Use:   "add <isbn>",
		Short: "Add a book (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(library.PermManageBooks); err != nil {
				return err
			}
			if err := a.mgr.AddBook(title, author, args[0]); err != nil {
				return errors.New(describe(err))
			}
			fmt.Fprintln(a.out, "Book added successfully!")
			return nil
		},
	}
	add.Flags().StringVar(&title, "title", "", "book title")
	add.Flags().StringVar(&author, "author", "", "book author")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("author")

	del := &cobra.Command{
		Use:   "delete <isbn>",
		Short: "Delete a book (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(library.PermManageBooks); err != nil {
				return err
			}
			if err := a.mgr.DeleteBook(args[0]); err != nil {
				return errors.New(describe(err))
			}
			fmt.Fprintln(a.out, "Book deleted.")
			return nil
		},
	}

	books.AddCommand(list, search, add, del)
	return books
}

func newBorrowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <isbn>",
		Short: "Borrow a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.login(library.PermBorrow)
			if err != nil {
				return err
			}
			due, err := a.mgr.BorrowBook(args[0], u.Username)
			if err != nil {
				return errors.New(describe(err))
			}
			if a.asJSON {
				return a.printJSON(map[string]string{"isbn": args[0], "due": library.FormatDate(due)})
			}
			fmt.Fprintf(a.out, "Borrowed %s. Due: %s\n", args[0], library.FormatDate(due))
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <isbn>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.login(library.PermBorrow)
			if err != nil {
				return err
			}
			rr, err := a.mgr.ReturnBook(args[0], u.Username)
			if err != nil {
				return errors.New(describe(err))
			}
			if a.asJSON {
				return a.printJSON(rr)
			}
			printReceipt(a.out, args[0], rr)
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show your borrowing history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.login(library.PermBorrow)
			if err != nil {
				return err
			}
			h := a.mgr.History(u.Username)
			if a.asJSON {
				return a.printJSON(h)
			}
			printHistory(a.out, u.Username, h)
			return nil
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Circulation report (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(library.PermViewReports); err != nil {
				return err
			}
			r := a.mgr.Report()
			if a.asJSON {
				return a.printJSON(r)
			}
			printReport(a.out, a.mgr, r)
			return nil
		},
	}
}

func newUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(library.PermManageUsers); err != nil {
				return err
			}
			users := a.mgr.GetAllUsers()
			if a.asJSON {
				return a.printJSON(users)
			}
			printUsers(a.out, users)
			return nil
		},
	}
}

func (a *app) printBooks(books []library.Book, empty string) error {
	if a.asJSON {
		return a.printJSON(books)
	}
	printBooks(a.out, books, empty)
	return nil
}
