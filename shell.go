package main

import (
	"fmt"
	"io"

	"library-ledger/library"
)

// shell is the interactive menu: a login loop followed by a command loop for
// the signed-in user.
type shell struct {
	mgr *library.LibraryManager
	p   *prompter
	out io.Writer
}

func newShell(mgr *library.LibraryManager, p *prompter, out io.Writer) *shell {
	return &shell{mgr: mgr, p: p, out: out}
}

func (s *shell) run() error {
	fmt.Fprintln(s.out, "Welcome to the Library Ledger!")
	for {
		fmt.Fprintln(s.out, "\nCommands: login, register, exit")
		cmd, ok := s.p.line("> ")
		if !ok {
			return nil
		}

		switch cmd {
		case "login":
			u, ok := s.handleLogin()
			if !ok {
				continue
			}
			if quit := s.session(u); quit {
				fmt.Fprintln(s.out, "Goodbye!")
				return nil
			}
		case "register":
			s.handleRegister()
		case "exit":
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		case "":
		default:
			fmt.Fprintln(s.out, "Unknown command.")
		}
	}
}

func (s *shell) handleLogin() (library.User, bool) {
	username, ok := s.p.line("Username: ")
	if !ok {
		return library.User{}, false
	}
	pw, err := s.p.password("Password: ")
	if err != nil {
		return library.User{}, false
	}
	u, err := s.mgr.Login(username, pw)
	if err != nil {
		fmt.Fprintf(s.out, "Login failed: %s\n", describe(err))
		return library.User{}, false
	}
	fmt.Fprintf(s.out, "Welcome, %s (%s).\n", u.Username, u.Role)
	return u, true
}

func (s *shell) handleRegister() {
	username, ok := s.p.line("Username: ")
	if !ok {
		return
	}
	if s.mgr.UserExists(username) {
		fmt.Fprintln(s.out, "Username exists.")
		return
	}
	p1, err := s.p.password("Password: ")
	if err != nil {
		return
	}
	p2, err := s.p.password("Confirm password: ")
	if err != nil {
		return
	}
	if p1 != p2 {
		fmt.Fprintln(s.out, "Passwords mismatch.")
		return
	}
	if err := s.mgr.Register(username, p1); err != nil {
		fmt.Fprintf(s.out, "Error registering: %s\n", describe(err))
		return
	}
	fmt.Fprintln(s.out, "Registration successful! You can now log in.")
}

// session runs the menu for u until logout or exit; it reports whether the
// whole shell should stop.
func (s *shell) session(u library.User) bool {
	s.menu(u)
	for {
		cmd, ok := s.p.line("\n" + u.Username + "> ")
		if !ok {
			return true
		}

		switch cmd {
		case "add book":
			if s.allowed(u, library.PermManageBooks) {
				s.handleAddBook()
			}
		case "delete book":
			if s.allowed(u, library.PermManageBooks) {
				s.handleDeleteBook()
			}
		case "report":
			if s.allowed(u, library.PermViewReports) {
				printReport(s.out, s.mgr, s.mgr.Report())
			}
		case "list users":
			if s.allowed(u, library.PermManageUsers) {
				printUsers(s.out, s.mgr.GetAllUsers())
			}
		case "list books":
			printBooks(s.out, s.mgr.GetAllBooks(), "No books available.")
		case "search book":
			s.handleSearch()
		case "borrow":
			s.handleBorrow(u)
		case "return":
			s.handleReturn(u)
		case "history":
			printHistory(s.out, u.Username, s.mgr.History(u.Username))
		case "help":
			s.menu(u)
		case "logout":
			fmt.Fprintln(s.out, "Logged out.")
			return false
		case "exit":
			return true
		case "":
		default:
			fmt.Fprintln(s.out, "Unknown command. Type 'help' for the list.")
		}
	}
}

func (s *shell) menu(u library.User) {
	fmt.Fprintln(s.out, "Available commands:")
	if u.Role.Can(library.PermManageBooks) {
		fmt.Fprintln(s.out, "  Admin: add book, delete book, report, list users")
	}
	fmt.Fprintln(s.out, "  Books: list books, search book")
	fmt.Fprintln(s.out, "  Circulation: borrow, return, history")
	fmt.Fprintln(s.out, "  System: help, logout, exit")
}

func (s *shell) allowed(u library.User, p library.Permission) bool {
	if err := s.mgr.Authorize(u, p); err != nil {
		fmt.Fprintln(s.out, "Access denied.")
		return false
	}
	return true
}

func (s *shell) handleAddBook() {
	title, ok := s.p.line("Title: ")
	if !ok {
		return
	}
	author, ok := s.p.line("Author: ")
	if !ok {
		return
	}
	isbn, ok := s.p.line("ISBN: ")
	if !ok {
		return
	}
	if err := s.mgr.AddBook(title, author, isbn); err != nil {
		fmt.Fprintf(s.out, "Error adding book: %s\n", describe(err))
		return
	}
	fmt.Fprintln(s.out, "Book added successfully!")
}

func (s *shell) handleDeleteBook() {
	isbn, ok := s.p.line("ISBN to delete: ")
	if !ok {
		return
	}
	if err := s.mgr.DeleteBook(isbn); err != nil {
		fmt.Fprintf(s.out, "Error deleting book: %s\n", describe(err))
		return
	}
	fmt.Fprintln(s.out, "Book deleted.")
}

func (s *shell) handleSearch() {
	kw, ok := s.p.line("Title, author or ISBN: ")
	if !ok {
		return
	}
	printBooks(s.out, s.mgr.SearchBooks(kw), "No book found.")
}

func (s *shell) handleBorrow(u library.User) {
	isbn, ok := s.p.line("ISBN to borrow: ")
	if !ok {
		return
	}
	due, err := s.mgr.BorrowBook(isbn, u.Username)
	if err != nil {
		fmt.Fprintf(s.out, "Error borrowing book: %s\n", describe(err))
		return
	}
	fmt.Fprintf(s.out, "Borrowed %s. Due: %s\n", isbn, library.FormatDate(due))
}

func (s *shell) handleReturn(u library.User) {
	isbn, ok := s.p.line("ISBN to return: ")
	if !ok {
		return
	}
	rr, err := s.mgr.ReturnBook(isbn, u.Username)
	if err != nil {
		fmt.Fprintf(s.out, "Error returning book: %s\n", describe(err))
		return
	}
	printReceipt(s.out, isbn, rr)
}

// ------------------ Rendering ------------------

func printBooks(out io.Writer, books []library.Book, empty string) {
	if len(books) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	fmt.Fprintf(out, "%-15s %-30s %-25s %-10s\n", "ISBN", "Title", "Author", "Status")
	for _, b := range books {
		fmt.Fprintln(out, library.PrettyBook(b))
	}
}

func printReceipt(out io.Writer, isbn string, rr library.ReturnReceipt) {
	if rr.LateDays > 0 {
		fmt.Fprintf(out, "Returned %s, %d day(s) late. Fine: %d\n", isbn, rr.LateDays, rr.Fine)
		return
	}
	fmt.Fprintf(out, "Returned %s on time. No fine.\n", isbn)
}

func printHistory(out io.Writer, username string, txs []library.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintf(out, "No borrowing history for %s.\n", username)
		return
	}
	fmt.Fprintf(out, "%-15s %-12s %-12s %-12s %s\n", "ISBN", "Issued", "Due", "Returned", "Fine")
	for _, t := range txs {
		fmt.Fprintln(out, library.PrettyTransaction(t))
	}
}

func printUsers(out io.Writer, users []library.User) {
	fmt.Fprintf(out, "%-20s %s\n", "Username", "Role")
	for _, u := range users {
		fmt.Fprintf(out, "%-20s %s\n", u.Username, u.Role)
	}
}

func printReport(out io.Writer, mgr *library.LibraryManager, r library.Report) {
	fmt.Fprintln(out, "=== Library Report ===")
	fmt.Fprintf(out, "Total books: %d\n", r.TotalBooks)
	fmt.Fprintf(out, "Available:   %d\n", r.Available)
	fmt.Fprintf(out, "Issued:      %d\n", r.Issued)
	if r.MostBorrowed == nil {
		fmt.Fprintln(out, "No transactions yet.")
		return
	}
	title := r.MostBorrowed.Key
	// The book may have been deleted since; its loans remain in the history.
	if b, err := mgr.GetBook(r.MostBorrowed.Key); err == nil {
		title = fmt.Sprintf("%s [%s]", b.Title, b.ISBN)
	}
	fmt.Fprintf(out, "Most borrowed: %s (%d loans)\n", title, r.MostBorrowed.Value)
	fmt.Fprintf(out, "Top fine:      %s (%d)\n", r.TopFine.Key, r.TopFine.Value)
}
