package links

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sequenceIDProvider struct {
	mu   sync.Mutex
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("link-%d", p.next), nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	databaseName := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+databaseName+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&Link{}); err != nil {
		t.Fatalf("failed to migrate links: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Unix(1700000000, 0) },
		IDProvider: &sequenceIDProvider{},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func mustAppend(t *testing.T, service *Service, ownerID, title, url string) Link {
	t.Helper()
	link, err := service.Append(t.Context(), ownerID, title, url, "")
	if err != nil {
		t.Fatalf("append %q failed: %v", title, err)
	}
	return link
}

func mustLoad(t *testing.T, service *Service, ownerID string) []Link {
	t.Helper()
	ordered, err := service.LoadOrdered(t.Context(), ownerID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return ordered
}

func titlesOf(ordered []Link) []string {
	titles := make([]string, 0, len(ordered))
	for _, link := range ordered {
		titles = append(titles, link.Title)
	}
	return titles
}

func assertContiguous(t *testing.T, ordered []Link) {
	t.Helper()
	for index, link := range ordered {
		if link.Position != index {
			t.Fatalf("expected position %d for %q, got %d", index, link.Title, link.Position)
		}
	}
}
