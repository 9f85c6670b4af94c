package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const userPrefix = "user:"

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) UserRepository {
	return UserRepository{db: db, log: log}
}

// DiskUser is the stored representation of a user.
// Equivalent to DiskMessage for the directory.
type DiskUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GetUser retrieves a user from Badger and converts it to the domain.User struct.
func (u UserRepository) GetUser(userID string) (domain.User, error) {
	var diskUser DiskUser
	err := view(u.db, func(txn *badger.Txn) error {
		return getJSON(txn, []byte(userPrefix+userID), &diskUser)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(diskUser), nil
}

func (u UserRepository) SaveUser(user domain.User) error {
	return update(u.db, func(txn *badger.Txn) error {
		return setJSON(txn, []byte(userPrefix+user.ID), DiskUser{
			ID:        user.ID,
			Name:      user.Name,
			CreatedAt: user.CreatedAt,
		})
	})
}

func (u UserRepository) ListUsers() ([]domain.User, error) {
	var users []domain.User
	err := view(u.db, func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(userPrefix), func(key, val []byte) error {
			var diskUser DiskUser
			if err := json.Unmarshal(val, &diskUser); err != nil {
				u.log.Warn("Skipping unreadable user", "key", string(key), "error", err)
				return nil
			}
			users = append(users, toUser(diskUser))
			return nil
		})
	})
	return users, err
}

func toUser(diskUser DiskUser) domain.User {
	return domain.User{
		ID:        diskUser.ID,
		Name:      diskUser.Name,
		CreatedAt: diskUser.CreatedAt.UTC(),
	}
}
