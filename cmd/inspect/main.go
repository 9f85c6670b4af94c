// Command inspect dumps the relay's Badger store and seeds demo data.
//
//	inspect -db ./data chats
//	inspect -db ./data messages <chat-id>
//	inspect -db ./data -secret s3cr3t seed alice:Alice bob:Bob
package main

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/repositories"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	secret := flag.String("secret", os.Getenv("AUTH_SECRET"), "Secret used to sign seeded tokens")
	tokenDuration := flag.Duration("token-duration", 24*time.Hour, "Lifetime of seeded tokens")
	chatName := flag.String("name", "general", "Name of the seeded chat")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("usage: inspect [flags] chats | messages <chat-id> | seed <id:name>...")
	}

	var err error
	switch args[0] {
	case "chats":
		err = withDB(*dbPath, true, listChats)
	case "messages":
		if len(args) < 2 {
			log.Fatal("usage: inspect messages <chat-id>")
		}
		err = withDB(*dbPath, true, func(db *badger.DB) error { return listMessages(db, args[1]) })
	case "seed":
		if *secret == "" {
			log.Fatal("seed needs -secret or AUTH_SECRET")
		}
		tokens := auth.NewTokenManager(*secret, *tokenDuration)
		err = withDB(*dbPath, false, func(db *badger.DB) error { return seed(db, tokens, *chatName, args[1:]) })
	default:
		log.Fatalf("unknown command %q", args[0])
	}
	if err != nil {
		log.Fatal(err)
	}
}

func withDB(path string, readOnly bool, fn func(db *badger.DB) error) error {
	db, err := openDB(path, readOnly)
	if err != nil {
		return fmt.Errorf("error while opening Badger: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func listChats(db *badger.DB) error {
	chats, err := repositories.NewChatRepository(db, slog.Default()).ListChats()
	if err != nil {
		return err
	}
	table := newTable(os.Stdout, "ID", "Name", "Participants", "Latest message", "Created")
	for _, chat := range chats {
		latest := ""
		if chat.LatestMessageID != nil {
			latest = chat.LatestMessageID.String()
		}
		table.Append([]string{
			chat.ID.String(),
			chat.Name,
			strings.Join(chat.Participants, ","),
			latest,
			chat.CreatedAt.Format(time.DateTime),
		})
	}
	table.Render()
	return nil
}

func listMessages(db *badger.DB, rawChatID string) error {
	chatID, err := uuid.Parse(rawChatID)
	if err != nil {
		return fmt.Errorf("invalid chat id: %w", err)
	}
	chat, err := repositories.NewChatRepository(db, slog.Default()).GetChat(chatID)
	if err != nil {
		return err
	}
	messages, err := repositories.NewMessageRepository(db, slog.Default()).ListByChat(chatID)
	if err != nil {
		return err
	}
	table := newTable(os.Stdout, "ID", "Time", "Sender", "Status", "Delivered", "Read", "Content")
	for _, m := range messages {
		table.Append([]string{
			m.ID.String()[:8],
			m.CreatedAt.Format(time.TimeOnly),
			m.SenderID,
			m.SenderStatus(chat.Participants).String(),
			strings.Join(m.DeliveredTo, ","),
			strings.Join(m.ReadBy, ","),
			m.Content,
		})
	}
	table.Render()
	return nil
}

// seed stores one user per "id:name" argument, a chat between all of them,
// and prints a bearer token for each.
func seed(db *badger.DB, tokens *auth.TokenManager, chatName string, entries []string) error {
	if len(entries) < 2 {
		return fmt.Errorf("seed needs at least two users")
	}
	users := lo.Map(entries, func(entry string, _ int) domain.User {
		id, name, found := strings.Cut(entry, ":")
		if !found {
			name = id
		}
		return domain.User{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	})

	userRepository := repositories.NewUserRepository(db, slog.Default())
	for _, user := range users {
		if err := userRepository.SaveUser(user); err != nil {
			return err
		}
	}
	chat := domain.NewChat(chatName, lo.Map(users, func(u domain.User, _ int) string { return u.ID })...)
	if err := repositories.NewChatRepository(db, slog.Default()).SaveChat(chat); err != nil {
		return err
	}

	fmt.Printf("Chat %q: %s\n\n", chat.Name, chat.ID)
	table := newTable(os.Stdout, "User", "Name", "Token")
	for _, user := range users {
		token, err := tokens.Generate(user.ID)
		if err != nil {
			return err
		}
		table.Append([]string{user.ID, user.Name, token})
	}
	table.Render()
	return nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func openDB(path string, readOnly bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if readOnly {
		// Lets the inspector read while the relay holds the lock.
		opts = opts.WithReadOnly(true).WithBypassLockGuard(true)
	}
	return badger.Open(opts)
}
