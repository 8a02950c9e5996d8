package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/security"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(&config.Config{
		DBDriver: "sqlite",
		DBDSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name),
		LogLevel: "info",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		database.Close(db)
	})
	return db
}

// fakeMailer records every code it is asked to deliver.
type fakeMailer struct {
	mu    sync.Mutex
	codes map[string][]string
	err   error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{codes: map[string][]string{}}
}

func (m *fakeMailer) SendOTP(_ context.Context, recipient, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes[recipient] = append(m.codes[recipient], code)
	return nil
}

func (m *fakeMailer) sent(recipient string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes[recipient])
}

func (m *fakeMailer) lastCode(recipient string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.codes[recipient]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

func fastHasher() *security.PasswordHasher {
	return &security.PasswordHasher{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}
