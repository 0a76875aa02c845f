// Package bot implements the Telegram surface for library patrons.
package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
)

const (
	welcomeMessage = "Welcome to the library bot!\n\n" +
		"Commands:\n" +
		"/search <title> - search the catalogue\n" +
		"/register <email> - link your account\n" +
		"/myloans - list your open loans"

	searchResultLimit = 10
)

// Responder turns incoming bot commands into reply texts. It is transport
// agnostic so tests do not need a Telegram connection.
type Responder struct {
	books  *books.Repository
	users  *users.Repository
	engine *circulation.Engine
}

func NewResponder(booksRepo *books.Repository, usersRepo *users.Repository, engine *circulation.Engine) *Responder {
	return &Responder{books: booksRepo, users: usersRepo, engine: engine}
}

// Respond handles a single command from the given chat and returns the reply
// text. Unknown commands get the help text.
func (r *Responder) Respond(command, args, chatID string) string {
	switch command {
	case "start", "help":
		return welcomeMessage
	case "search":
		return r.search(args)
	case "register":
		return r.register(args, chatID)
	case "myloans":
		return r.myLoans(chatID)
	default:
		return welcomeMessage
	}
}

func (r *Responder) search(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Usage: /search <title>"
	}

	found, err := r.books.SearchByTitle(query, searchResultLimit)
	if err != nil {
		return "Search failed, please try again later."
	}
	if len(found) == 0 {
		return fmt.Sprintf("No books found for %q.", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d book(s):\n", len(found)))
	for _, book := range found {
		status := "available"
		if !book.IsAvailable {
			status = "on loan"
		}
		sb.WriteString(fmt.Sprintf("- %s by %s (%s)\n", book.Title, book.Author, status))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r *Responder) register(email, chatID string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "Usage: /register <email>"
	}

	user, err := r.users.LinkTelegram(email, chatID)
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		return "No library account found for that email. Ask a librarian to register you first."
	case errors.Is(err, users.ErrDuplicateContact):
		return "This chat is already linked to an account."
	case err != nil:
		return "Registration failed, please try again later."
	}
	return fmt.Sprintf("Linked! Hello, %s.", user.Name)
}

func (r *Responder) myLoans(chatID string) string {
	user, err := r.users.GetByTelegramChatID(chatID)
	if errors.Is(err, users.ErrUserNotFound) {
		return "You are not registered yet. Use /register <email> first."
	}
	if err != nil {
		return "Could not load your loans, please try again later."
	}

	loans, err := r.engine.OpenLoansForUser(user.ID)
	if err != nil {
		return "Could not load your loans, please try again later."
	}
	if len(loans) == 0 {
		return "You have no books on loan."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You have %d book(s) on loan:\n", len(loans)))
	for _, loan := range loans {
		sb.WriteString(fmt.Sprintf("- %s by %s, due %s\n",
			loan.Book.Title, loan.Book.Author, loan.DueDate.Format("2006-01-02")))
	}
	return strings.TrimRight(sb.String(), "\n")
}
